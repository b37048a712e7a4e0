package compute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationKindString(t *testing.T) {
	assert.Equal(t, "BufferWrite", OpBufferWrite.String())
	assert.Equal(t, "Bind", OpBind.String())
	assert.Equal(t, "Execute", OpExecute.String())
	assert.Equal(t, "Unknown", OperationKind(99).String())
}

func TestOperationGuardsVariantMutation(t *testing.T) {
	write := Operation{kind: OpBufferWrite}
	err := write.addBind(bindEntry{slot: 0, store: 0})
	var misuse *OperationMisuseError
	require.ErrorAs(t, err, &misuse)
	assert.Contains(t, misuse.Reason, "BufferWrite")

	bind := Operation{kind: OpBind}
	err = bind.setStore(1)
	require.ErrorAs(t, err, &misuse)
	assert.Contains(t, misuse.Reason, "Bind")

	exec := Operation{kind: OpExecute}
	require.Error(t, exec.addBind(bindEntry{}))
	require.Error(t, exec.setStore(0))
}

func TestOperationAccessors(t *testing.T) {
	bind := Operation{kind: OpBind}
	require.NoError(t, bind.addBind(bindEntry{slot: 0, store: 2}))
	require.NoError(t, bind.addBind(bindEntry{slot: 1, store: 0}))
	assert.Equal(t, []int{2, 0}, bind.BindStoreIndexes())

	write := Operation{kind: OpBufferWrite}
	require.NoError(t, write.setStore(3))
	assert.Equal(t, 3, write.StoreIndex())
	assert.Equal(t, OpBufferWrite, write.Kind())
}
