package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yichen-ai/yichen/internal/assistant"
)

// WrongQuestion is one entry of the wrong-question book.
type WrongQuestion struct {
	ID        uuid.UUID         `json:"id"`
	Subject   assistant.Subject `json:"subject"`
	Topic     string            `json:"topic"`
	Content   string            `json:"content"`
	Analysis  string            `json:"analysis"`
	ImageRef  string            `json:"imageRef,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// AddWrongQuestion records a question the student got wrong.
func (s *Store) AddWrongQuestion(ctx context.Context, q WrongQuestion) (uuid.UUID, error) {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO wrong_questions (id, subject, topic, content, analysis, image_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`,
		q.ID, string(q.Subject), q.Topic, q.Content, q.Analysis, q.ImageRef,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert wrong question: %w", err)
	}
	return q.ID, nil
}

// ListWrongQuestions returns the book, newest first.
func (s *Store) ListWrongQuestions(ctx context.Context) ([]WrongQuestion, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, subject, topic, content, analysis, COALESCE(image_ref, ''), created_at
		FROM wrong_questions
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query wrong questions: %w", err)
	}
	defer rows.Close()

	var questions []WrongQuestion
	for rows.Next() {
		var (
			q       WrongQuestion
			subject string
		)
		if err := rows.Scan(&q.ID, &subject, &q.Topic, &q.Content, &q.Analysis, &q.ImageRef, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wrong question: %w", err)
		}
		q.Subject = assistant.Subject(subject)
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListWrongTopics returns the distinct topics in the book, the input the
// recommendation task feeds on.
func (s *Store) ListWrongTopics(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT topic FROM wrong_questions WHERE topic <> '' ORDER BY topic`)
	if err != nil {
		return nil, fmt.Errorf("query wrong topics: %w", err)
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}
