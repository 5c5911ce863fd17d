package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"peace-cake-service/internal/domain"
)

const codeUniqueViolation = "23505"

// CatalogStore keeps profiles, quizzes and questions in Postgres. Cascading
// deletes are enforced by foreign keys (see migrations).
type CatalogStore struct {
	pool *pgxpool.Pool
}

func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

func (s *CatalogStore) QuizExists(ctx context.Context, quizID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quizzes WHERE id=$1)`, quizID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("quiz exists: %w", err)
	}
	return exists, nil
}

func (s *CatalogStore) Question(ctx context.Context, questionID string) (domain.QuestionRef, error) {
	var ref domain.QuestionRef
	err := s.pool.QueryRow(ctx,
		`SELECT id, quiz_id, points, jsonb_array_length(options) FROM questions WHERE id=$1`, questionID,
	).Scan(&ref.ID, &ref.QuizID, &ref.Points, &ref.OptionCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuestionRef{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.QuestionRef{}, fmt.Errorf("load question: %w", err)
	}
	return ref, nil
}

func (s *CatalogStore) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, created_at FROM profiles ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []domain.Profile{}
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (s *CatalogStore) CreateProfile(ctx context.Context, profile domain.Profile) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO profiles (id, name, created_at) VALUES ($1, $2, $3)`,
		profile.ID, profile.Name, profile.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrProfileNameTaken
	}
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *CatalogStore) GetProfile(ctx context.Context, profileID string) (domain.Profile, error) {
	var p domain.Profile
	err := s.pool.QueryRow(ctx, `SELECT id, name, created_at FROM profiles WHERE id=$1`, profileID).
		Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

func (s *CatalogStore) UpdateProfile(ctx context.Context, profile domain.Profile) error {
	tag, err := s.pool.Exec(ctx, `UPDATE profiles SET name=$2 WHERE id=$1`, profile.ID, profile.Name)
	if isUniqueViolation(err) {
		return domain.ErrProfileNameTaken
	}
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (s *CatalogStore) DeleteProfile(ctx context.Context, profileID string) ([]string, error) {
	return s.deleteCascade(ctx, domain.ErrProfileNotFound,
		`SELECT q.id FROM questions q JOIN quizzes z ON z.id = q.quiz_id WHERE z.profile_id=$1`,
		`DELETE FROM profiles WHERE id=$1`, profileID)
}

func (s *CatalogStore) ListQuizzes(ctx context.Context, profileID string) ([]domain.QuizSummary, error) {
	rows, err := s.pool.Query(ctx, `
SELECT z.id, z.title, z.description, z.created_at, COUNT(q.id)
FROM quizzes z
LEFT JOIN questions q ON q.quiz_id = z.id
WHERE z.profile_id = $1
GROUP BY z.id
ORDER BY z.created_at`, profileID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	summaries := []domain.QuizSummary{}
	for rows.Next() {
		var z domain.QuizSummary
		if err := rows.Scan(&z.ID, &z.Title, &z.Description, &z.CreatedAt, &z.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		summaries = append(summaries, z)
	}
	return summaries, rows.Err()
}

// CreateQuiz inserts the quiz and any questions it carries in one transaction.
func (s *CatalogStore) CreateQuiz(ctx context.Context, quiz domain.Quiz) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, rollback(ctx, tx))
		}
	}()

	var profileExists bool
	if err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE id=$1)`, quiz.ProfileID).Scan(&profileExists); err != nil {
		return fmt.Errorf("check profile: %w", err)
	}
	if !profileExists {
		return domain.ErrProfileNotFound
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO quizzes (id, profile_id, title, description, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		quiz.ID, quiz.ProfileID, quiz.Title, quiz.Description, quiz.CreatedAt, quiz.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	for _, q := range quiz.Questions {
		if err = insertQuestion(ctx, tx, q); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *CatalogStore) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var z domain.Quiz
	err := s.pool.QueryRow(ctx,
		`SELECT id, profile_id, title, description, created_at, updated_at FROM quizzes WHERE id=$1`, quizID,
	).Scan(&z.ID, &z.ProfileID, &z.Title, &z.Description, &z.CreatedAt, &z.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	if z.Questions, err = s.questionsFor(ctx, quizID); err != nil {
		return domain.Quiz{}, err
	}
	return z, nil
}

func (s *CatalogStore) UpdateQuiz(ctx context.Context, quiz domain.Quiz) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE quizzes SET title=$2, description=$3, updated_at=$4 WHERE id=$1`,
		quiz.ID, quiz.Title, quiz.Description, quiz.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *CatalogStore) DeleteQuiz(ctx context.Context, quizID string) ([]string, error) {
	return s.deleteCascade(ctx, domain.ErrQuizNotFound,
		`SELECT id FROM questions WHERE quiz_id=$1`,
		`DELETE FROM quizzes WHERE id=$1`, quizID)
}

func (s *CatalogStore) ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	exists, err := s.QuizExists(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrQuizNotFound
	}
	return s.questionsFor(ctx, quizID)
}

func (s *CatalogStore) CreateQuestion(ctx context.Context, question domain.Question) error {
	err := insertQuestion(ctx, s.pool, question)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return domain.ErrQuizNotFound
	}
	return err
}

func (s *CatalogStore) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id=$1`, questionID)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	return q, nil
}

func (s *CatalogStore) UpdateQuestion(ctx context.Context, question domain.Question) error {
	options, err := json.Marshal(question.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE questions
SET prompt=$2, options=$3::jsonb, correct_index=$4, points=$5, difficulty=$6, updated_at=$7
WHERE id=$1`,
		question.ID, question.Prompt, string(options), question.CorrectIndex, question.Points,
		difficultyArg(question.Difficulty), question.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *CatalogStore) DeleteQuestion(ctx context.Context, questionID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE id=$1`, questionID)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

// deleteCascade collects the question ids about to be removed by a cascading
// delete, then runs it, both inside one transaction.
func (s *CatalogStore) deleteCascade(ctx context.Context, notFound error, selectStmt, deleteStmt, id string) (removed []string, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, rollback(ctx, tx))
		}
	}()

	rows, err := tx.Query(ctx, selectStmt, id)
	if err != nil {
		return nil, fmt.Errorf("collect questions: %w", err)
	}
	for rows.Next() {
		var questionID string
		if err = rows.Scan(&questionID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan question id: %w", err)
		}
		removed = append(removed, questionID)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, deleteStmt, id)
	if err != nil {
		return nil, fmt.Errorf("delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = notFound
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return removed, nil
}

const questionColumns = `id, quiz_id, prompt, options, correct_index, points, difficulty, created_at, updated_at`

func (s *CatalogStore) questionsFor(ctx context.Context, quizID string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE quiz_id=$1 ORDER BY points, created_at`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	questions := []domain.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func insertQuestion(ctx context.Context, db execer, q domain.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	_, err = db.Exec(ctx, `
INSERT INTO questions (id, quiz_id, prompt, options, correct_index, points, difficulty, created_at, updated_at)
VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9)`,
		q.ID, q.QuizID, q.Prompt, string(options), q.CorrectIndex, q.Points,
		difficultyArg(q.Difficulty), q.CreatedAt, q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var (
		q          domain.Question
		rawOptions []byte
		difficulty *string
	)
	if err := row.Scan(&q.ID, &q.QuizID, &q.Prompt, &rawOptions, &q.CorrectIndex, &q.Points,
		&difficulty, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return domain.Question{}, err
	}
	if err := json.Unmarshal(rawOptions, &q.Options); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal options: %w", err)
	}
	if q.Options == nil {
		q.Options = []string{}
	}
	if difficulty != nil {
		d := domain.Difficulty(*difficulty)
		q.Difficulty = &d
	}
	return q, nil
}

func difficultyArg(d *domain.Difficulty) *string {
	if d == nil {
		return nil
	}
	s := string(*d)
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

func rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}
