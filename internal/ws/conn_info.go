package ws

import (
	"time"

	"portal-service/internal/models"
)

type ConnInfo struct {
	ConnID      string
	UserID      int
	UserName    string
	Role        models.Role
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
