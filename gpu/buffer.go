package gpu

import (
	"fmt"
	"time"

	"github.com/openfluke/webgpu/wgpu"

	"github.com/PPinucci/wgpu-calc/compute"
)

// CreateBuffer allocates a storage buffer usable as both copy source and
// destination, so it can be staged from the host and read back.
func (e *Executor) CreateBuffer(label string, size uint64) (compute.BufferID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	buf, err := e.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return 0, fmt.Errorf("create buffer %s: %w", label, err)
	}
	id := e.nextBuffer
	e.nextBuffer++
	e.buffers[id] = buf
	return id, nil
}

// WriteBuffer stages bytes into a buffer through the queue.
func (e *Executor) WriteBuffer(id compute.BufferID, data []byte) error {
	e.mu.Lock()
	buf, ok := e.buffers[id]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("write: unknown buffer %d", id)
	}
	e.queue.WriteBuffer(buf, 0, data)
	return nil
}

// ReadBuffer copies a buffer into a staging buffer, maps it and returns the
// contents. It blocks until the device signals the map has completed; there
// is no timeout, so an unresponsive device stalls the caller.
func (e *Executor) ReadBuffer(id compute.BufferID) ([]byte, error) {
	e.mu.Lock()
	buf, ok := e.buffers[id]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("read: unknown buffer %d", id)
	}
	size := buf.GetSize()

	staging, err := e.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "read staging",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer staging.Destroy()

	encoder, err := e.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	encoder.CopyBufferToBuffer(buf, 0, staging, 0, size)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finish copy: %w", err)
	}
	e.queue.Submit(cmd)

	done := make(chan struct{})
	var mapErr error
	err = staging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("map failed: %v", status)
		}
		close(done)
	})
	if err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}

	for {
		e.device.Poll(false, nil)
		select {
		case <-done:
			if mapErr != nil {
				return nil, mapErr
			}
			mapped := staging.GetMappedRange(0, uint(size))
			if mapped == nil {
				return nil, fmt.Errorf("get mapped range failed")
			}
			data := make([]byte, size)
			copy(data, mapped)
			staging.Unmap()
			return data, nil
		default:
			time.Sleep(time.Millisecond)
		}
	}
}
