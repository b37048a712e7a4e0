package gpu

import (
	"fmt"
	"strings"

	"github.com/openfluke/webgpu/wgpu"

	"github.com/PPinucci/wgpu-calc/compute"
)

// CreatePipeline compiles a shader entry point against a binding layout and
// returns a handle to the resulting compute pipeline. Shader modules are
// cached by source content; pipelines are cached by (source, entry point,
// layout shape), so asking for the same pipeline twice is cheap.
func (e *Executor) CreatePipeline(source, entryPoint, label string, layout []compute.BindingLayout) (compute.PipelineID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := pipelineKey(source, entryPoint, layout)
	for id, p := range e.pipelines {
		if p.key == key {
			return id, nil
		}
	}

	module, ok := e.modules[source]
	if !ok {
		var err error
		module, err = e.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label:          label,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
		})
		if err != nil {
			return 0, fmt.Errorf("compile shader for %s: %w", label, err)
		}
		e.modules[source] = module
	}

	entries := make([]wgpu.BindGroupLayoutEntry, len(layout))
	for i, l := range layout {
		bindingType := wgpu.BufferBindingTypeStorage
		if l.ReadOnly {
			bindingType = wgpu.BufferBindingTypeReadOnlyStorage
		}
		entries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    l.Slot,
			Visibility: wgpu.ShaderStageCompute,
			Buffer:     wgpu.BufferBindingLayout{Type: bindingType},
		}
	}
	bindLayout, err := e.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		return 0, fmt.Errorf("create bind group layout for %s: %w", label, err)
	}

	pipelineLayout, err := e.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: []*wgpu.BindGroupLayout{bindLayout},
	})
	if err != nil {
		return 0, fmt.Errorf("create pipeline layout for %s: %w", label, err)
	}

	pipeline, err := e.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  label,
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: entryPoint,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("create pipeline for %s: %w", label, err)
	}

	id := e.nextPipeline
	e.nextPipeline++
	e.pipelines[id] = &pipelineEntry{
		pipeline: pipeline,
		layout:   bindLayout,
		key:      key,
	}
	return id, nil
}

// pipelineKey identifies a pipeline by its source, entry point and layout
// shape. Binding sizes are deliberately excluded: the bind group layout only
// encodes slot numbers and access, so pipelines are reusable across
// same-shaped functions.
func pipelineKey(source, entryPoint string, layout []compute.BindingLayout) string {
	var b strings.Builder
	b.WriteString(entryPoint)
	for _, l := range layout {
		fmt.Fprintf(&b, "|%d:%t", l.Slot, l.ReadOnly)
	}
	b.WriteString("|")
	b.WriteString(source)
	return b.String()
}

// Dispatch records one dispatch into a finished command buffer: a bind group
// built from the pipeline's layout, a compute pass and the workgroup counts.
// Nothing runs until the stream is submitted.
func (e *Executor) Dispatch(pipeline compute.PipelineID, binds []compute.BufferBinding, workgroups [3]uint32, label string) (compute.CommandStream, error) {
	e.mu.Lock()
	entry, ok := e.pipelines[pipeline]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("dispatch %s: unknown pipeline %d", label, pipeline)
	}
	groupEntries := make([]wgpu.BindGroupEntry, len(binds))
	for i, b := range binds {
		buf, ok := e.buffers[b.Buffer]
		if !ok {
			e.mu.Unlock()
			return nil, fmt.Errorf("dispatch %s: unknown buffer %d", label, b.Buffer)
		}
		groupEntries[i] = wgpu.BindGroupEntry{
			Binding: b.Slot,
			Buffer:  buf,
			Size:    buf.GetSize(),
		}
	}
	e.mu.Unlock()

	bindGroup, err := e.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  entry.layout,
		Entries: groupEntries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group for %s: %w", label, err)
	}
	defer bindGroup.Release()

	encoder, err := e.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create command encoder for %s: %w", label, err)
	}
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(entry.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(workgroups[0], workgroups[1], workgroups[2])
	pass.End()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finish command encoder for %s: %w", label, err)
	}
	return cmd, nil
}

// Submit sends finalized command buffers to the queue in order, as one
// submission.
func (e *Executor) Submit(streams ...compute.CommandStream) error {
	cmds := make([]*wgpu.CommandBuffer, len(streams))
	for i, s := range streams {
		cmd, ok := s.(*wgpu.CommandBuffer)
		if !ok {
			return fmt.Errorf("submit: stream %d was not produced by this executor", i)
		}
		cmds[i] = cmd
	}
	e.queue.Submit(cmds...)
	return nil
}
