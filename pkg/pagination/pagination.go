// Package pagination maps an owner's message counter to a newest-first
// retrieval window. Pages are addressed by sequence number rather than
// timestamp so that two messages created in the same instant still have
// a deterministic order and page boundaries never shift under them.
package pagination

// Window describes one page of a dense, newest-first sequence.
//
// StartAt is the highest sequence number on the page; the store fetches
// messages with sequence_no <= StartAt, descending, limited to Count.
// An out-of-range page yields Count == 0 and TotalPages == 0 while
// TotalElements still reports the live total.
type Window struct {
	TotalElements int64
	TotalPages    int64
	StartAt       int64
	Count         int64
}

// ComputeWindow derives the retrieval window for a page request.
// counter is the owner's message counter (the next sequence number to
// assign, so counter-1 messages exist). page and size are 1-based;
// values below 1 are treated as 1.
func ComputeWindow(counter, page, size int64) Window {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}

	var total int64
	if counter > 1 {
		total = counter - 1
	}

	remains := total % size
	pages := (total-remains)/size + min(remains, 1)

	startAt := total - (page-1)*size
	if startAt < 0 {
		// 请求的页码超出数据范围：返回空窗口而不是报错
		return Window{TotalElements: total}
	}

	return Window{
		TotalElements: total,
		TotalPages:    pages,
		StartAt:       startAt,
		Count:         min(size, startAt),
	}
}
