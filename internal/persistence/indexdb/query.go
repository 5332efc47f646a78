package indexdb

import (
	"context"
	"database/sql"
)

func Sessions(ctx context.Context, db *sql.DB, limit int) ([]SessionRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `SELECT id,bot,players,me,width,height,max_turns,started_at,COALESCE(ended_at,''),last_turn,reserve FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SessionRow
	for rows.Next() {
		var r SessionRow
		if err := rows.Scan(&r.ID, &r.Bot, &r.Players, &r.Me, &r.Width, &r.Height, &r.MaxTurns, &r.StartedAt, &r.EndedAt, &r.LastTurn, &r.Reserve); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Turns lists a session's turns from fromTurn on, in turn order.
func Turns(ctx context.Context, db *sql.DB, session string, fromTurn, limit int) ([]TurnRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `SELECT session,turn,digest,spawn,commands,rerouted,failures,endgame,duration_ms FROM turns WHERE session=? AND turn>=? ORDER BY turn LIMIT ?`, session, fromTurn, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TurnRow
	for rows.Next() {
		var r TurnRow
		if err := rows.Scan(&r.Session, &r.Turn, &r.Digest, &r.Spawn, &r.Commands, &r.Rerouted, &r.Failures, &r.Endgame, &r.DurationMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Failures lists a session's failures, optionally filtered by code.
func Failures(ctx context.Context, db *sql.DB, session, code string, limit int) ([]FailureRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `SELECT session,turn,seq,unit_id,code,COALESCE(detail,'') FROM failures WHERE session=? AND (?='' OR code=?) ORDER BY turn,seq LIMIT ?`, session, code, code, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FailureRow
	for rows.Next() {
		var r FailureRow
		if err := rows.Scan(&r.Session, &r.Turn, &r.Seq, &r.UnitID, &r.Code, &r.Detail); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FailureCounts totals failures per code for a session.
func FailureCounts(ctx context.Context, db *sql.DB, session string) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT code,COUNT(*) FROM failures WHERE session=? GROUP BY code`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var code string
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, err
		}
		out[code] = n
	}
	return out, rows.Err()
}
