// Package audit records who changed what. The write path calls a Recorder
// explicitly after a successful commit; attribution (actor, source IP) is
// threaded as arguments instead of living in ambient request state, and a
// recording failure never fails the request that triggered it.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"
)

// Entry is one audit record: an INSERT, UPDATE or DELETE on a row of some
// table, attributed to the acting user and their source address.
type Entry struct {
	Table    string
	RecordID uint64
	Action   string // INSERT | UPDATE | DELETE
	Changes  interface{}
	ActorID  uint64
	SourceIP string
}

// Recorder accepts audit entries. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// SQLRecorder writes entries to the audit_logs table.
type SQLRecorder struct{ DB *sql.DB }

func NewSQLRecorder(db *sql.DB) *SQLRecorder { return &SQLRecorder{DB: db} }

// Record persists one entry. Errors are logged and swallowed: auditing is
// best-effort and must not affect the committed operation being described.
func (r *SQLRecorder) Record(ctx context.Context, e Entry) {
	var changed sql.NullString
	if e.Changes != nil {
		b, err := json.Marshal(e.Changes)
		if err != nil {
			log.Printf("audit: marshal changes for %s/%d: %v", e.Table, e.RecordID, err)
		} else {
			changed = sql.NullString{String: string(b), Valid: true}
		}
	}
	var actor sql.NullInt64
	if e.ActorID != 0 {
		actor = sql.NullInt64{Int64: int64(e.ActorID), Valid: true}
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO audit_logs (table_name,record_id,action,changed_data,user_id,ip_address,created_at) VALUES (?,?,?,?,?,?,?)",
		e.Table, e.RecordID, e.Action, changed, actor, e.SourceIP, time.Now().UTC())
	if err != nil {
		log.Printf("audit: insert %s on %s/%d failed: %v", e.Action, e.Table, e.RecordID, err)
	}
}

// Nop discards every entry. Useful in tests and when auditing is disabled.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}
