package form

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS form_fields (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	submission_id TEXT NOT NULL,
	field         TEXT NOT NULL,
	value         TEXT NOT NULL,
	referer       TEXT NOT NULL DEFAULT '',
	user_agent    TEXT NOT NULL DEFAULT '',
	received_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_form_fields_submission ON form_fields(submission_id);
`

// SQLiteSink は項目をSQLiteに1行ずつ保存する
type SQLiteSink struct {
	conn   *sql.DB
	logger *slog.Logger
}

// OpenSQLiteSink はデータベースを開き、必要ならテーブルを作成する
func OpenSQLiteSink(path string, logger *slog.Logger) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("データベースディレクトリの作成に失敗: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("データベースのオープンに失敗: %w", err)
	}
	// pragmaは接続ごとの設定なので接続を1本に固定する
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000", // 同時書き込み時は最大5秒待つ
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("pragmaの設定に失敗: %w", err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("スキーマの初期化に失敗: %w", err)
	}

	logger.Info("フォーム保存先を開きました", "path", path)
	return &SQLiteSink{conn: conn, logger: logger}, nil
}

// Submit は1回の送信を1トランザクションで保存する
func (s *SQLiteSink) Submit(ctx context.Context, sub Submission) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO form_fields
		(submission_id, field, value, referer, user_agent, received_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("INSERT文の準備に失敗: %w", err)
	}
	defer stmt.Close()

	receivedAt := sub.ReceivedAt.UTC().Format(time.RFC3339Nano)
	for _, k := range sub.SortedKeys() {
		if _, err := stmt.ExecContext(ctx, sub.ID, k, sub.Fields[k], sub.Referer, sub.UserAgent, receivedAt); err != nil {
			return fmt.Errorf("項目 %s の保存に失敗: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗: %w", err)
	}
	return nil
}

// Field は保存済みの1項目
type Field struct {
	SubmissionID string
	Name         string
	Value        string
}

// Fields は保存済みの項目を保存順に返す
func (s *SQLiteSink) Fields(ctx context.Context) ([]Field, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT submission_id, field, value FROM form_fields ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("項目の取得に失敗: %w", err)
	}
	defer rows.Close()

	var fields []Field
	for rows.Next() {
		var f Field
		if err := rows.Scan(&f.SubmissionID, &f.Name, &f.Value); err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

// Close はデータベースを閉じる
func (s *SQLiteSink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
