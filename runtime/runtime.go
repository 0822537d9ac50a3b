// Package runtime defines the interface between an emitted Program and a
// GPU device. A real implementation binds the WGSL in emit.Program to a
// wgpu device; that binding is outside this repository's scope (SPEC_FULL
// §6 non-goal). NullRunner is a test double standing in for it.
package runtime

import "github.com/gogpu/shad/emit"

// Runner drives one compiled Program against a device: it owns the
// storage buffers named by Program.Buffers and dispatches each shader in
// turn.
type Runner interface {
	// New allocates the program's buffers and compiles its shaders.
	New(program *emit.Program) error
	// RunStep dispatches the named shader once.
	RunStep(shaderName string) error
	// Read copies a buffer's current contents back to the host.
	Read(bufferName string) ([]byte, error)
	// Write uploads host data into a buffer.
	Write(bufferName string, data []byte) error
	// ReadTarget copies a buffer's contents into a caller-owned scratch
	// buffer, letting a caller reuse one allocation across many steps.
	ReadTarget(bufferName string, dst []byte) error
}

// NullRunner is a Runner that performs no device work: New records the
// program's declared buffer and shader names so a caller (or a test) can
// assert that every Shader.ReferencedBuffers name actually appears in
// Program.Buffers, without needing a GPU.
type NullRunner struct {
	program *emit.Program
	buffers map[string][]byte
}

// New implements Runner.
func (r *NullRunner) New(program *emit.Program) error {
	r.program = program
	r.buffers = map[string][]byte{}
	for name := range program.Buffers {
		r.buffers[name] = nil
	}
	return nil
}

// RunStep implements Runner; it looks up the named shader and verifies
// every buffer it references was declared, but performs no computation.
func (r *NullRunner) RunStep(shaderName string) error {
	for _, sh := range r.program.InitShaders {
		if sh.Name == shaderName {
			return r.dispatch(sh)
		}
	}
	for _, sh := range r.program.RunShaders {
		if sh.Name == shaderName {
			return r.dispatch(sh)
		}
	}
	return &UnknownShaderError{Shader: shaderName}
}

func (r *NullRunner) dispatch(sh emit.Shader) error {
	for _, buf := range sh.ReferencedBuffers {
		if _, ok := r.buffers[buf]; !ok {
			return &UnknownBufferError{Shader: sh.Name, Buffer: buf}
		}
	}
	return nil
}

// Read implements Runner.
func (r *NullRunner) Read(bufferName string) ([]byte, error) {
	data, ok := r.buffers[bufferName]
	if !ok {
		return nil, &UnknownBufferError{Buffer: bufferName}
	}
	return data, nil
}

// Write implements Runner.
func (r *NullRunner) Write(bufferName string, data []byte) error {
	if _, ok := r.buffers[bufferName]; !ok {
		return &UnknownBufferError{Buffer: bufferName}
	}
	r.buffers[bufferName] = data
	return nil
}

// ReadTarget implements Runner.
func (r *NullRunner) ReadTarget(bufferName string, dst []byte) error {
	data, err := r.Read(bufferName)
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

// UnknownBufferError reports a shader or a caller naming a buffer the
// program never declared.
type UnknownBufferError struct {
	Shader string
	Buffer string
}

func (e *UnknownBufferError) Error() string {
	if e.Shader != "" {
		return "runtime: shader " + e.Shader + " references undeclared buffer " + e.Buffer
	}
	return "runtime: undeclared buffer " + e.Buffer
}

// UnknownShaderError reports a caller naming a shader the program never
// declared.
type UnknownShaderError struct {
	Shader string
}

func (e *UnknownShaderError) Error() string {
	return "runtime: undeclared shader " + e.Shader
}
