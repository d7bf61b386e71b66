package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store 打开后由单一会话串行写入（orchestrator 是唯一写入方），
// “排除/恢复”开关来自外部（用户操作），读写均走同一连接。
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS utterances (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	createdAt INTEGER NOT NULL,
	excludedFromContext INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_utterances_createdAt ON utterances(createdAt);

CREATE TABLE IF NOT EXISTS interactions (
	id TEXT PRIMARY KEY,
	systemPrompt TEXT NOT NULL,
	userPrompt TEXT NOT NULL,
	response TEXT NOT NULL,
	createdAt INTEGER NOT NULL,
	latencyMs INTEGER NOT NULL,
	modelId TEXT NOT NULL,
	temperature REAL NOT NULL,
	maxTokens INTEGER NOT NULL,
	grade INTEGER
);
CREATE INDEX IF NOT EXISTS idx_interactions_createdAt ON interactions(createdAt);
`

// Open 打开（必要时创建）数据库，WAL 模式。
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close 关闭数据库连接。
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveUtterance 持久化一条定稿记录。
func (s *Store) SaveUtterance(u *Utterance) error {
	_, err := s.db.Exec(`
		INSERT INTO utterances (id, text, createdAt, excludedFromContext)
		VALUES (?, ?, ?, ?)
	`, u.ID, u.Text, u.CreatedAt, boolToInt(u.ExcludedFromContext))
	if err != nil {
		return fmt.Errorf("save utterance: %w", err)
	}
	return nil
}

// SaveInteraction 持久化一次 LLM 往返。
func (s *Store) SaveInteraction(it *Interaction) error {
	_, err := s.db.Exec(`
		INSERT INTO interactions
			(id, systemPrompt, userPrompt, response, createdAt, latencyMs, modelId, temperature, maxTokens, grade)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, it.ID, it.SystemPrompt, it.UserPrompt, it.Response, it.CreatedAt,
		it.LatencyMs, it.ModelID, it.Temperature, it.MaxTokens, gradeValue(it.Grade))
	if err != nil {
		return fmt.Errorf("save interaction: %w", err)
	}
	return nil
}

// MostRecentInteraction 返回最近一次往返；没有任何记录时返回 (nil, nil)。
func (s *Store) MostRecentInteraction() (*Interaction, error) {
	row := s.db.QueryRow(`
		SELECT id, systemPrompt, userPrompt, response, createdAt, latencyMs, modelId, temperature, maxTokens, grade
		FROM interactions
		ORDER BY createdAt DESC, rowid DESC
		LIMIT 1
	`)

	var it Interaction
	var grade sql.NullInt64
	if err := row.Scan(&it.ID, &it.SystemPrompt, &it.UserPrompt, &it.Response,
		&it.CreatedAt, &it.LatencyMs, &it.ModelID, &it.Temperature, &it.MaxTokens, &grade); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan interaction: %w", err)
	}
	if grade.Valid {
		g := int(grade.Int64)
		it.Grade = &g
	}
	return &it, nil
}

// UpdateGrade 给指定往返打分（0~5），覆盖写入。
func (s *Store) UpdateGrade(id string, grade int) error {
	res, err := s.db.Exec(`UPDATE interactions SET grade = ? WHERE id = ?`, grade, id)
	if err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update grade: interaction %s not found", id)
	}
	return nil
}

// MarkAllExcluded 把所有语音记录标记为“不参与上下文”。
func (s *Store) MarkAllExcluded() error {
	if _, err := s.db.Exec(`UPDATE utterances SET excludedFromContext = 1`); err != nil {
		return fmt.Errorf("mark all excluded: %w", err)
	}
	return nil
}

// SetUtteranceExcluded 用户级开关：单条记录是否参与上下文。
// 注意：这是管线之外的外部写入口（UI/工具调用），管线本身不会调它。
func (s *Store) SetUtteranceExcluded(id string, excluded bool) error {
	res, err := s.db.Exec(`UPDATE utterances SET excludedFromContext = ? WHERE id = ?`, boolToInt(excluded), id)
	if err != nil {
		return fmt.Errorf("set utterance excluded: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set utterance excluded: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("set utterance excluded: utterance %s not found", id)
	}
	return nil
}

// RecentNonExcluded 返回最近 n 条未排除的记录，按创建时间倒序。
func (s *Store) RecentNonExcluded(n int) ([]Utterance, error) {
	rows, err := s.db.Query(`
		SELECT id, text, createdAt, excludedFromContext
		FROM utterances
		WHERE excludedFromContext = 0
		ORDER BY createdAt DESC, rowid DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent utterances: %w", err)
	}
	defer rows.Close()

	var out []Utterance
	for rows.Next() {
		var u Utterance
		var excluded int
		if err := rows.Scan(&u.ID, &u.Text, &u.CreatedAt, &excluded); err != nil {
			return nil, fmt.Errorf("scan utterance: %w", err)
		}
		u.ExcludedFromContext = excluded != 0
		out = append(out, u)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func gradeValue(g *int) interface{} {
	if g == nil {
		return nil
	}
	return *g
}
