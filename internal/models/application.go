package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Response is one answered question of a staff application.
type Response struct {
	QuestionID          string `json:"question_id"`
	Answer              string `json:"answer"`
	TimeToAnswerSeconds int    `json:"time_to_answer"`
}

// Application is the variant data of a staff application case.
type Application struct {
	CaseID                uuid.UUID                    `gorm:"type:uuid;primaryKey" json:"-"`
	PositionID            string                       `gorm:"size:100;not null;index" json:"position_id"`
	Responses             datatypes.JSONSlice[Response] `json:"responses"`
	SubmittedAt           *time.Time                   `json:"submitted_at"`
	TimeToCompleteSeconds int                          `json:"time_to_complete"`
}

func (Application) TableName() string {
	return "applications"
}
