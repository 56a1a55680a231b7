package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// AccountHeader optionally selects the Chatwoot account.
const AccountHeader = "X-Account-Id"

const accountKey contextKey = "account_id"

// AccountID returns the account resolved by ResolveAccount, or 0.
func AccountID(ctx context.Context) int {
	id, _ := ctx.Value(accountKey).(int)
	return id
}

// ResolveAccount determines the Chatwoot account for the request from the
// account_id query parameter, then the account_id field of a JSON body, then
// the X-Account-Id header, then defaultID. A malformed or non-positive value
// is a 400. With required set, a request that resolves to no account is a
// 400 as well.
func ResolveAccount(defaultID int, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := accountFromRequest(r)
			if err != nil {
				status := http.StatusBadRequest
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					status = http.StatusRequestEntityTooLarge
				}
				writeError(w, status, err.Error())
				return
			}
			if id == 0 {
				id = defaultID
			}
			if id <= 0 {
				if required {
					writeError(w, http.StatusBadRequest,
						"account_id is required: pass it as a query parameter, body field or "+AccountHeader+" header")
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			AddAuditMetadata(r.Context(), "account_id", id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey, id)))
		})
	}
}

type accountError string

func (e accountError) Error() string { return string(e) }

const errBadAccount = accountError("account_id must be a positive integer")

func accountFromRequest(r *http.Request) (int, error) {
	if v := r.URL.Query().Get("account_id"); v != "" {
		return parseAccount(v)
	}
	v, ok, err := accountFromBody(r)
	if err != nil {
		return 0, err
	}
	if ok {
		return parseAccount(v)
	}
	if v := r.Header.Get(AccountHeader); v != "" {
		return parseAccount(v)
	}
	return 0, nil
}

// accountFromBody peeks at a JSON object body and restores it for the next
// handler. A body that cannot be read in full is an error; it is never passed
// on truncated.
func accountFromBody(r *http.Request) (string, bool, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return "", false, nil
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "json") {
		return "", false, nil
	}
	data, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		return "", false, fmt.Errorf("read request body: %w", err)
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	if len(data) == 0 {
		return "", false, nil
	}

	var fields map[string]json.RawMessage
	if json.Unmarshal(data, &fields) != nil {
		return "", false, nil
	}
	raw, ok := fields["account_id"]
	if !ok || string(raw) == "null" {
		return "", false, nil
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s, true, nil
	}
	return string(raw), true, nil
}

func parseAccount(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0, errBadAccount
	}
	return n, nil
}
