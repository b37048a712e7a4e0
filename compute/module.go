package compute

import "github.com/PPinucci/wgpu-calc/shader"

// module caches one shader together with the entry points registered against
// it. Shaders match by source content, not handle identity: recompiling
// identical source wastes device time, so two Shader values with the same
// text are one module. Pipelines themselves are materialized by the backend
// at execute time, not at registration.
type module struct {
	shader      *shader.Shader
	entryPoints []string
}

func (m *module) findEntryPoint(name string) (int, bool) {
	for i, ep := range m.entryPoints {
		if ep == name {
			return i, true
		}
	}
	return 0, false
}

func (m *module) addEntryPoint(name string) int {
	m.entryPoints = append(m.entryPoints, name)
	return len(m.entryPoints) - 1
}

// moduleCache deduplicates (shader source, entry point) pairs. Modules are
// never removed during a session.
type moduleCache struct {
	modules []*module
}

// register resolves a shader and entry point to their cache indices,
// inserting whatever is missing.
func (c *moduleCache) register(sh *shader.Shader, entryPoint string) (moduleIndex, entryIndex int) {
	for i, m := range c.modules {
		if !m.shader.Equal(sh) {
			continue
		}
		if j, ok := m.findEntryPoint(entryPoint); ok {
			return i, j
		}
		return i, m.addEntryPoint(entryPoint)
	}
	c.modules = append(c.modules, &module{
		shader:      sh,
		entryPoints: []string{entryPoint},
	})
	return len(c.modules) - 1, 0
}

func (c *moduleCache) at(moduleIndex, entryIndex int) (*shader.Shader, string) {
	m := c.modules[moduleIndex]
	return m.shader, m.entryPoints[entryIndex]
}
