package compute

import "go.uber.org/zap"

// storedVariable is the store's record for one distinct variable identity:
// the shared handle, every bind slot it has been attached to across the
// session, and the device buffer backing it. Records are never removed
// while the session lives.
type storedVariable struct {
	handle *Var
	slots  []uint32
	buffer BufferID
}

// variableStore tracks which device buffer backs each distinct variable
// identity. Identity is the handle pointer, deliberately not structural
// equality: two variables with equal contents still get independent buffers
// unless they are literally the same object.
type variableStore struct {
	backend Backend
	entries []*storedVariable
}

// intern resolves a variable handle to its store index, allocating a device
// buffer on first sight. The returned flag reports whether the identity is
// new, in which case the caller owes the variable exactly one staging write.
// Repeat references only record the additional bind slot.
func (s *variableStore) intern(v *Var, slot uint32) (index int, isNew bool, err error) {
	for i, e := range s.entries {
		if e.handle == v {
			e.slots = append(e.slots, slot)
			Logger().Debug("variable store hit",
				zap.String("variable", v.Name()),
				zap.Int("store", i),
				zap.Uint32("slot", slot))
			return i, false, nil
		}
	}
	buffer, err := s.backend.CreateBuffer(v.Name(), v.ByteSize())
	if err != nil {
		return 0, false, &DeviceError{Op: "create buffer", Err: err}
	}
	s.entries = append(s.entries, &storedVariable{
		handle: v,
		slots:  []uint32{slot},
		buffer: buffer,
	})
	index = len(s.entries) - 1
	Logger().Debug("variable store miss, buffer allocated",
		zap.String("variable", v.Name()),
		zap.Int("store", index),
		zap.Uint32("slot", slot))
	return index, true, nil
}

// lookup finds the record for a handle by identity.
func (s *variableStore) lookup(v *Var) (*storedVariable, bool) {
	for _, e := range s.entries {
		if e.handle == v {
			return e, true
		}
	}
	return nil, false
}
