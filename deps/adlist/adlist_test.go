package adlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewList(t *testing.T) {
	list := NewList[int]()
	assert.Equal(t, 0, list.Len())
	_, ok := list.PopHead()
	assert.False(t, ok)
}

func TestAddNodeTail(t *testing.T) {
	list := NewList[int]()
	list.AddNodeTail(5)
	list.AddNodeTail(10)
	assert.Equal(t, 2, list.Len())
	assert.Equal(t, 5, list.head.value)
	assert.Equal(t, 10, list.tail.value)
}

func TestPopHeadIsFIFO(t *testing.T) {
	list := NewList[string]()
	list.AddNodeTail("a")
	list.AddNodeTail("b")

	v, ok := list.PopHead()
	assert.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, 1, list.Len())

	v, ok = list.PopHead()
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = list.PopHead()
	assert.False(t, ok)
	assert.Equal(t, 0, list.Len())
	assert.Nil(t, list.head)
	assert.Nil(t, list.tail)
}

func TestAddAfterDrain(t *testing.T) {
	list := NewList[int]()
	list.AddNodeTail(1)
	list.PopHead()
	list.AddNodeTail(2)

	v, ok := list.PopHead()
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 0, list.Len())
}
