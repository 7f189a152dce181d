package models

import (
	"fmt"
	"time"
)

// Counter keys. They mirror the metadata/ paths of the realtime database.
const (
	CounterUsers         = "users-count"
	CounterMemes         = "memes-count"
	CounterNotifications = "notif-count"
	counterJoinedPrefix  = "joined-users/"
)

var monthNames = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// FormatDate renders t as D-Mon-YYYY, e.g. 5-Jan-2024.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d-%s-%d", t.Day(), monthNames[t.Month()-1], t.Year())
}

// JoinedUsersKey is the per-day joined-users counter key for t.
func JoinedUsersKey(t time.Time) string {
	return counterJoinedPrefix + FormatDate(t)
}
