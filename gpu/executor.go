// Package gpu implements the compute.Backend contract on WebGPU, via
// github.com/openfluke/webgpu. It owns the instance, adapter, device and
// queue, and maps the scheduler's opaque handles to wgpu objects.
package gpu

import (
	"fmt"
	"strings"
	"sync"

	"github.com/openfluke/webgpu/wgpu"

	"github.com/PPinucci/wgpu-calc/compute"
)

// Options configures executor creation.
type Options struct {
	// Label names the executor in device labels and errors.
	Label string

	// AdapterSubstring, when non-empty, force-selects the first adapter
	// whose name or vendor contains the substring (case-insensitive).
	AdapterSubstring string

	// LowPower prefers a low-power adapter over a high-performance one.
	LowPower bool
}

// Executor drives one WebGPU device. It implements compute.Backend.
type Executor struct {
	mu       sync.Mutex
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	label    string

	buffers    map[compute.BufferID]*wgpu.Buffer
	nextBuffer compute.BufferID

	pipelines    map[compute.PipelineID]*pipelineEntry
	nextPipeline compute.PipelineID

	// compiled shader modules keyed by source content, so identical source
	// registered under several entry points compiles once
	modules map[string]*wgpu.ShaderModule
}

var _ compute.Backend = (*Executor)(nil)

type pipelineEntry struct {
	pipeline *wgpu.ComputePipeline
	layout   *wgpu.BindGroupLayout
	key      string
}

// NewExecutor connects to a GPU. Adapter selection tries the configured
// preference first, then falls back to whatever the instance offers.
func NewExecutor(opts *Options) (*Executor, error) {
	if opts == nil {
		opts = &Options{}
	}
	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return nil, fmt.Errorf("gpu: failed to create WebGPU instance")
	}

	adapter, err := selectAdapter(instance, opts)
	if err != nil {
		return nil, err
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: request device: %w", err)
	}

	return &Executor{
		instance:     instance,
		adapter:      adapter,
		device:       device,
		queue:        device.GetQueue(),
		label:        opts.Label,
		buffers:      make(map[compute.BufferID]*wgpu.Buffer),
		nextBuffer:   1,
		pipelines:    make(map[compute.PipelineID]*pipelineEntry),
		nextPipeline: 1,
		modules:      make(map[string]*wgpu.ShaderModule),
	}, nil
}

func selectAdapter(instance *wgpu.Instance, opts *Options) (*wgpu.Adapter, error) {
	if opts.AdapterSubstring != "" {
		want := strings.ToLower(opts.AdapterSubstring)
		for _, a := range instance.EnumerateAdapters(nil) {
			info := a.GetInfo()
			if strings.Contains(strings.ToLower(info.Name), want) ||
				strings.Contains(strings.ToLower(info.VendorName), want) {
				return a, nil
			}
		}
	}

	preference := wgpu.PowerPreferenceHighPerformance
	if opts.LowPower {
		preference = wgpu.PowerPreferenceLowPower
	}
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: preference,
	})
	if err == nil && adapter != nil {
		return adapter, nil
	}

	adapter, err = instance.RequestAdapter(nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: no adapter found: %w", err)
	}
	if adapter == nil {
		return nil, fmt.Errorf("gpu: no adapter found")
	}
	return adapter, nil
}

// AdapterName returns the selected adapter's reported name.
func (e *Executor) AdapterName() string {
	return e.adapter.GetInfo().Name
}

// Close releases every resource the executor created, pipelines and buffers
// included. The executor must not be used afterwards.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, buf := range e.buffers {
		buf.Destroy()
		delete(e.buffers, id)
	}
	for id, p := range e.pipelines {
		p.pipeline.Release()
		delete(e.pipelines, id)
	}
	for src, m := range e.modules {
		m.Release()
		delete(e.modules, src)
	}
	if e.device != nil {
		e.device.Release()
		e.device = nil
	}
	if e.adapter != nil {
		e.adapter.Release()
		e.adapter = nil
	}
	e.queue = nil
	e.instance = nil
	return nil
}
