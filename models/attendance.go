package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceLeave   AttendanceStatus = "leave"
)

type AttendanceEntry struct {
	EmployeeName string           `bson:"employee_name" json:"employeeName"`
	Status       AttendanceStatus `bson:"status" json:"status"`
	Note         string           `bson:"note,omitempty" json:"note,omitempty"`
}

// Attendance is one reporter's roll call for one day.
type Attendance struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Date          string             `bson:"date" json:"date"`
	ReporterEmail string             `bson:"reporter_email" json:"reporterEmail"`
	ReporterName  string             `bson:"reporter_name" json:"reporterName"`
	Entries       []AttendanceEntry  `bson:"entries" json:"entries"`
	SubmittedAt   time.Time          `bson:"submitted_at" json:"submittedAt"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updatedAt"`
}

func (a *Attendance) Validate() error {
	if _, err := time.Parse(DateLayout, a.Date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD")
	}
	if strings.TrimSpace(a.ReporterEmail) == "" {
		return fmt.Errorf("reporter email is required")
	}
	if len(a.Entries) == 0 {
		return fmt.Errorf("at least one attendance entry is required")
	}
	for i, e := range a.Entries {
		if strings.TrimSpace(e.EmployeeName) == "" {
			return fmt.Errorf("entries[%d]: employee name is required", i)
		}
		switch e.Status {
		case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceLeave:
		default:
			return fmt.Errorf("entries[%d]: unknown status %q", i, e.Status)
		}
	}
	return nil
}

// Counts tallies entries by status.
func (a *Attendance) Counts() map[AttendanceStatus]int {
	counts := make(map[AttendanceStatus]int)
	for _, e := range a.Entries {
		counts[e.Status]++
	}
	return counts
}

type AttendanceFilter struct {
	Date          string
	ReporterEmail string
}

func (f AttendanceFilter) Matches(a *Attendance) bool {
	if f.Date != "" && a.Date != f.Date {
		return false
	}
	return f.ReporterEmail == "" || a.ReporterEmail == f.ReporterEmail
}
