package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationReportSubmitted     NotificationType = "report_submitted"
	NotificationReportReviewed      NotificationType = "report_reviewed"
	NotificationAttendanceSubmitted NotificationType = "attendance_submitted"
	NotificationSystem              NotificationType = "system"
)

type Notification struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title          string              `bson:"title" json:"title"`
	Message        string              `bson:"message" json:"message"`
	Type           NotificationType    `bson:"type" json:"type"`
	RecipientRoles []UserRole          `bson:"recipient_roles" json:"recipientRoles"`
	RecipientIDs   []string            `bson:"recipient_ids" json:"recipientIds"`
	ReportID       *primitive.ObjectID `bson:"report_id,omitempty" json:"reportId,omitempty"`
	AttendanceDate string              `bson:"attendance_date,omitempty" json:"attendanceDate,omitempty"`
	ReporterName   string              `bson:"reporter_name,omitempty" json:"reporterName,omitempty"`
	URL            string              `bson:"url,omitempty" json:"url,omitempty"`
	IsRead         bool                `bson:"is_read" json:"isRead"`
	CreatedAt      time.Time           `bson:"created_at" json:"createdAt"`
}

// AddressedTo reports whether a user with userID and roles is a recipient.
func (n *Notification) AddressedTo(userID string, roles []UserRole) bool {
	for _, id := range n.RecipientIDs {
		if userID != "" && id == userID {
			return true
		}
	}
	for _, want := range n.RecipientRoles {
		for _, have := range roles {
			if want == have {
				return true
			}
		}
	}
	return false
}

// NotificationEvent is the input of a fan-out: what happened and who should hear about it.
type NotificationEvent struct {
	Title          string              `json:"title"`
	Message        string              `json:"message"`
	Type           NotificationType    `json:"type"`
	RecipientRoles []UserRole          `json:"recipientRoles"`
	RecipientIDs   []string            `json:"recipientIds"`
	ReportID       *primitive.ObjectID `json:"reportId,omitempty"`
	AttendanceDate string              `json:"attendanceDate,omitempty"`
	ReporterName   string              `json:"reporterName,omitempty"`
	URL            string              `json:"url,omitempty"`
}

type NotificationFilter struct {
	Role       UserRole
	UserID     string
	UnreadOnly bool
	Limit      int64
}

// Matches applies the filter to n the way the store query does.
func (f NotificationFilter) Matches(n *Notification) bool {
	if f.UnreadOnly && n.IsRead {
		return false
	}
	if f.Role == "" && f.UserID == "" {
		return true
	}
	var roles []UserRole
	if f.Role != "" {
		roles = []UserRole{f.Role}
	}
	return n.AddressedTo(f.UserID, roles)
}
