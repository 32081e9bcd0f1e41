package server

import (
	"net/http"
	"strconv"
	"sync/atomic"
)

// 個別に数えるステータスコード
var trackedStatuses = []int{
	http.StatusOK,
	http.StatusBadRequest,
	http.StatusNotFound,
	http.StatusInternalServerError,
	http.StatusNotImplemented,
}

// Stats はワーカー間で共有するカウンタ
// 更新はすべてatomicで行い、ロックは取らない
type Stats struct {
	accepted atomic.Int64
	handled  atomic.Int64
	failed   atomic.Int64
	busy     atomic.Int64

	byStatus map[int]*atomic.Int64
	other    atomic.Int64
}

func newStats() *Stats {
	s := &Stats{byStatus: make(map[int]*atomic.Int64, len(trackedStatuses))}
	for _, code := range trackedStatuses {
		s.byStatus[code] = new(atomic.Int64)
	}
	return s
}

// record は応答済みの接続を数える
func (s *Stats) record(status int) {
	s.handled.Add(1)
	if c, ok := s.byStatus[status]; ok {
		c.Add(1)
		return
	}
	s.other.Add(1)
}

// Snapshot はある時点のカウンタの値
type Snapshot struct {
	Accepted  int64            `json:"accepted"`
	Handled   int64            `json:"handled"`
	Failed    int64            `json:"failed"`
	Busy      int64            `json:"busy"`
	Responses map[string]int64 `json:"responses"`
}

// Snapshot は現在の値を返す
func (s *Stats) Snapshot() Snapshot {
	responses := make(map[string]int64, len(trackedStatuses)+1)
	for code, c := range s.byStatus {
		responses[strconv.Itoa(code)] = c.Load()
	}
	responses["other"] = s.other.Load()

	return Snapshot{
		Accepted:  s.accepted.Load(),
		Handled:   s.handled.Load(),
		Failed:    s.failed.Load(),
		Busy:      s.busy.Load(),
		Responses: responses,
	}
}
