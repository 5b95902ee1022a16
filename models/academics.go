package models

import "time"

// AcademicYear is the period subjects are scheduled in
type AcademicYear struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	StartsOn  time.Time `json:"starts_on" db:"starts_on"`
	EndsOn    time.Time `json:"ends_on" db:"ends_on"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the AcademicYear model
func (AcademicYear) TableName() string {
	return "academic_years"
}

// EntityID implements Entity
func (y *AcademicYear) EntityID() int64 {
	return y.ID
}

// Subject is a course taught during an academic year
type Subject struct {
	ID           int64         `json:"id" db:"id"`
	Code         string        `json:"code" db:"code"`
	Name         string        `json:"name" db:"name"`
	Credits      int           `json:"credits" db:"credits"`
	AcademicYear *AcademicYear `json:"academic_year,omitempty"`
	Quizzes      []Quiz        `json:"quizzes,omitempty"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Subject model
func (Subject) TableName() string {
	return "subjects"
}

// EntityID implements Entity
func (s *Subject) EntityID() int64 {
	return s.ID
}

// AcademicYearID returns the id of the owning academic year, if any
func (s *Subject) AcademicYearID() *int64 {
	if s.AcademicYear == nil || s.AcademicYear.ID == 0 {
		return nil
	}
	id := s.AcademicYear.ID
	return &id
}

// Quiz is an assessment belonging to a subject
type Quiz struct {
	ID          int64      `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	MaxScore    float64    `json:"max_score" db:"max_score"`
	Published   bool       `json:"published" db:"published"`
	PublishedAt *time.Time `json:"published_at,omitempty" db:"published_at"`
	Subject     *Subject   `json:"subject,omitempty"`
	Questions   []Question `json:"questions,omitempty"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Quiz model
func (Quiz) TableName() string {
	return "quizzes"
}

// EntityID implements Entity
func (q *Quiz) EntityID() int64 {
	return q.ID
}

// SubjectID returns the id of the owning subject, if any
func (q *Quiz) SubjectID() *int64 {
	if q.Subject == nil || q.Subject.ID == 0 {
		return nil
	}
	id := q.Subject.ID
	return &id
}

// Publish marks the quiz as visible to students
func (q *Quiz) Publish(at time.Time) {
	q.Published = true
	q.PublishedAt = &at
	q.UpdatedAt = at
}

// Question is a single quiz item. Questions are edited with their quiz.
type Question struct {
	ID     int64   `json:"id" db:"id"`
	Prompt string  `json:"prompt" db:"prompt"`
	Points float64 `json:"points" db:"points"`
}
