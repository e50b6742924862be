// Package adlist is a generic linked list queue, after Redis' adlist.c.
// It is not safe for concurrent use; callers hold their own lock.
package adlist

type listNode[T any] struct {
	next  *listNode[T]
	value T
}

type List[T any] struct {
	head   *listNode[T]
	tail   *listNode[T]
	length int
}

func NewList[T any]() *List[T] {
	return &List[T]{}
}

func (l *List[T]) AddNodeTail(value T) {
	node := &listNode[T]{value: value}
	if l.tail == nil {
		l.head, l.tail = node, node
	} else {
		l.tail.next, l.tail = node, node
	}
	l.length++
}

// PopHead removes and returns the first value. ok is false on an empty list.
func (l *List[T]) PopHead() (value T, ok bool) {
	node := l.head
	if node == nil {
		return value, false
	}
	l.head, node.next = node.next, nil
	if l.head == nil {
		l.tail = nil
	}
	l.length--
	return node.value, true
}

func (l *List[T]) Len() int {
	return l.length
}
