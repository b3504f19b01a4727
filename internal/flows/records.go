package flows

import (
	"context"

	"github.com/maantoa/tomeauth/session"
)

// records is the full persisted session of one profile.
type records struct {
	user     *session.User
	session  *session.Session
	state    *session.State
	activity *session.Activity
}

// loadRecords reads all four records, stopping at the first error.
func loadRecords(ctx context.Context, store SessionStore, profile string) (records, error) {
	var (
		r   records
		err error
	)
	if r.user, err = store.LoadUser(ctx, profile); err != nil {
		return records{}, err
	}
	if r.session, err = store.LoadSession(ctx, profile); err != nil {
		return records{}, err
	}
	if r.state, err = store.LoadState(ctx, profile); err != nil {
		return records{}, err
	}
	if r.activity, err = store.LoadActivity(ctx, profile); err != nil {
		return records{}, err
	}
	return r, nil
}

// consistent reports whether the session, state and activity records carry
// the same identifier.
func (r records) consistent() bool {
	id := r.session.SessionID
	return id != "" && r.state.SessionID == id && r.activity.SessionID == id
}
