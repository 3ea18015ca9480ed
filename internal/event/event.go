package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type identifies an event kind.
type Type string

const (
	TournamentRegistered Type = "tournament.registered"
	PlayerRegistered     Type = "player.registered"
	MatchReported        Type = "match.reported"
	RecordsDeleted       Type = "records.deleted"
)

// Event is a single entry in the audit log.
type Event struct {
	ID          int64           `json:"id" db:"id"`
	AggregateID string          `json:"aggregate_id" db:"aggregate_id"`
	Type        Type            `json:"type" db:"type"`
	Data        json.RawMessage `json:"data" db:"data"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// TournamentAggregate returns the aggregate ID used for events about a tournament.
func TournamentAggregate(id int64) string {
	return fmt.Sprintf("tournament-%d", id)
}

// SystemAggregate is the aggregate ID for bulk operations that span tournaments.
const SystemAggregate = "system"

// TournamentRegisteredData is the payload for TournamentRegistered events.
type TournamentRegisteredData struct {
	Name string `json:"name"`
}

// PlayerRegisteredData is the payload for PlayerRegistered events.
type PlayerRegisteredData struct {
	PlayerID int64  `json:"player_id"`
	Name     string `json:"name"`
}

// MatchReportedData is the payload for MatchReported events.
type MatchReportedData struct {
	MatchID  int64 `json:"match_id"`
	WinnerID int64 `json:"winner_id"`
	LoserID  int64 `json:"loser_id"`
}

// RecordsDeletedData is the payload for RecordsDeleted events.
type RecordsDeletedData struct {
	Table string `json:"table"`
}
