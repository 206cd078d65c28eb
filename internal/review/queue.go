package review

import (
	"container/heap"

	"github.com/medlingo/transqa/internal/model"
)

// queueItem is one queued request. seq breaks priority ties so equal
// priorities are served in submission order.
type queueItem struct {
	req *model.ReviewRequest
	seq int64
}

// requestQueue is a priority heap over review requests. Not safe for
// concurrent use; the router's mutex guards it.
type requestQueue []*queueItem

func (q requestQueue) Len() int { return len(q) }

func (q requestQueue) Less(i, j int) bool {
	ri, rj := q[i].req.Priority.Rank(), q[j].req.Priority.Rank()
	if ri != rj {
		return ri < rj
	}
	return q[i].seq < q[j].seq
}

func (q requestQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *requestQueue) Push(x any) { *q = append(*q, x.(*queueItem)) }

func (q *requestQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

func (q *requestQueue) push(item *queueItem) { heap.Push(q, item) }

func (q *requestQueue) pop() *queueItem {
	if q.Len() == 0 {
		return nil
	}
	return heap.Pop(q).(*queueItem)
}

// remove drops the item holding the given request id, if queued.
func (q *requestQueue) remove(id string) {
	for i, item := range *q {
		if item.req.ID == id {
			heap.Remove(q, i)
			return
		}
	}
}
