package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/postamail/posta/internal/cache"
	"github.com/postamail/posta/internal/gmail"
	"github.com/postamail/posta/internal/logging"
	"github.com/postamail/posta/internal/model"
)

// apiHandler executes one command from its decoded parameters.
type apiHandler func(ctx context.Context, params json.RawMessage) (any, error)

// registerAPI mounts the command dispatcher under /api/v1/.
func (s *Server) registerAPI(mux *http.ServeMux) {
	for name, handler := range s.apiHandlers() {
		mux.Handle("/api/v1/"+name, s.apiEndpoint(name, handler))
	}
}

func (s *Server) apiHandlers() map[string]apiHandler {
	svc := s.service
	return map[string]apiHandler{
		"accounts/list": func(ctx context.Context, _ json.RawMessage) (any, error) {
			return svc.ListAccounts(ctx)
		},
		"accounts/remove": func(ctx context.Context, params json.RawMessage) (any, error) {
			var p struct {
				AccountID string `json:"account_id"`
			}
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			return nil, svc.RemoveAccount(ctx, p.AccountID)
		},
		"cards/list": func(ctx context.Context, _ json.RawMessage) (any, error) {
			return svc.ListCards(ctx)
		},
		"cards/create": func(ctx context.Context, params json.RawMessage) (any, error) {
			var card model.Card
			if err := decode(params, &card); err != nil {
				return nil, err
			}
			return svc.CreateCard(ctx, card)
		},
		"cards/update": func(ctx context.Context, params json.RawMessage) (any, error) {
			var card model.Card
			if err := decode(params, &card); err != nil {
				return nil, err
			}
			return nil, svc.UpdateCard(ctx, card)
		},
		"cards/delete": func(ctx context.Context, params json.RawMessage) (any, error) {
			var p struct {
				CardID string `json:"card_id"`
			}
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			return nil, svc.DeleteCard(ctx, p.CardID)
		},
		"cards/reorder": func(ctx context.Context, params json.RawMessage) (any, error) {
			var p struct {
				IDs []string `json:"ids"`
			}
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			return nil, svc.ReorderCards(ctx, p.IDs)
		},
		"mirror/pull": func(ctx context.Context, _ json.RawMessage) (any, error) {
			changed, err := svc.PullFromMirror(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]bool{"changed": changed}, nil
		},
		"sync/incremental": func(ctx context.Context, params json.RawMessage) (any, error) {
			var p struct {
				AccountID string `json:"account_id"`
			}
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			return svc.SyncThreadsIncremental(ctx, p.AccountID)
		},
		"threads/search": func(ctx context.Context, params json.RawMessage) (any, error) {
			var p struct {
				CardID    string `json:"card_id"`
				PageToken string `json:"page_token"`
			}
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			return svc.SearchThreads(ctx, p.CardID, p.PageToken)
		},
		"threads/cached": func(ctx context.Context, params json.RawMessage) (any, error) {
			var p struct {
				CardID string `json:"card_id"`
			}
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			return svc.GetCachedThreads(ctx, p.CardID)
		},
		"threads/body": func(ctx context.Context, params json.RawMessage) (any, error) {
			var p struct {
				AccountID string `json:"account_id"`
				MessageID string `json:"message_id"`
			}
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			body, err := svc.GetThreadBody(ctx, p.AccountID, p.MessageID)
			if err != nil {
				return nil, err
			}
			return map[string]string{"body": body}, nil
		},
		"attachments/download": func(ctx context.Context, params json.RawMessage) (any, error) {
			var p struct {
				AccountID    string `json:"account_id"`
				MessageID    string `json:"message_id"`
				AttachmentID string `json:"attachment_id"`
			}
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			data, err := svc.DownloadAttachment(ctx, p.AccountID, p.MessageID, p.AttachmentID)
			if err != nil {
				return nil, err
			}
			return map[string]string{"data": base64.StdEncoding.EncodeToString(data)}, nil
		},
		"attachments/save": func(ctx context.Context, params json.RawMessage) (any, error) {
			var p struct {
				AccountID    string `json:"account_id"`
				MessageID    string `json:"message_id"`
				AttachmentID string `json:"attachment_id"`
				Filename     string `json:"filename"`
				Dir          string `json:"dir"`
			}
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			path, err := svc.SaveAttachment(ctx, p.AccountID, p.MessageID, p.AttachmentID, p.Filename, p.Dir)
			if err != nil {
				return nil, err
			}
			return map[string]string{"path": path}, nil
		},
		"mail/send": func(ctx context.Context, params json.RawMessage) (any, error) {
			var p struct {
				AccountID string             `json:"account_id"`
				Message   gmail.EmailMessage `json:"message"`
			}
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			id, err := svc.SendEmail(ctx, p.AccountID, &p.Message)
			if err != nil {
				return nil, err
			}
			return map[string]string{"id": id}, nil
		},
		"mail/reply": func(ctx context.Context, params json.RawMessage) (any, error) {
			var p struct {
				AccountID     string             `json:"account_id"`
				ThreadID      string             `json:"thread_id"`
				OrigMessageID string             `json:"orig_message_id"`
				Message       gmail.EmailMessage `json:"message"`
			}
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			id, err := svc.ReplyToEmail(ctx, p.AccountID, p.ThreadID, p.OrigMessageID, &p.Message)
			if err != nil {
				return nil, err
			}
			return map[string]string{"id": id}, nil
		},
		"mail/draft": func(ctx context.Context, params json.RawMessage) (any, error) {
			var p struct {
				AccountID string             `json:"account_id"`
				Message   gmail.EmailMessage `json:"message"`
			}
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			id, err := svc.CreateDraft(ctx, p.AccountID, &p.Message)
			if err != nil {
				return nil, err
			}
			return map[string]string{"id": id}, nil
		},
		"threads/mark_read": s.threadAction(func(ctx context.Context, accountID, threadID string) error {
			return svc.MarkThreadRead(ctx, accountID, threadID)
		}),
		"threads/mark_unread": s.threadAction(func(ctx context.Context, accountID, threadID string) error {
			return svc.MarkThreadUnread(ctx, accountID, threadID)
		}),
		"threads/archive": s.threadAction(func(ctx context.Context, accountID, threadID string) error {
			return svc.ArchiveThread(ctx, accountID, threadID)
		}),
		"threads/trash": s.threadAction(func(ctx context.Context, accountID, threadID string) error {
			return svc.TrashThread(ctx, accountID, threadID)
		}),
		"threads/labels": func(ctx context.Context, params json.RawMessage) (any, error) {
			var p struct {
				AccountID string   `json:"account_id"`
				ThreadID  string   `json:"thread_id"`
				Add       []string `json:"add"`
				Remove    []string `json:"remove"`
			}
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			return nil, svc.ModifyThreadLabels(ctx, p.AccountID, p.ThreadID, p.Add, p.Remove)
		},
		"calendar/rsvp": func(ctx context.Context, params json.RawMessage) (any, error) {
			var p struct {
				AccountID string `json:"account_id"`
				UID       string `json:"uid"`
				Response  string `json:"response"`
			}
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			return nil, svc.RespondToInvite(ctx, p.AccountID, p.UID, p.Response)
		},
		"calendar/status": func(ctx context.Context, params json.RawMessage) (any, error) {
			var p struct {
				AccountID string `json:"account_id"`
				UID       string `json:"uid"`
			}
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			status, err := svc.InviteResponseStatus(ctx, p.AccountID, p.UID)
			if err != nil {
				return nil, err
			}
			return map[string]string{"response_status": status}, nil
		},
		"calendar/upcoming": func(ctx context.Context, params json.RawMessage) (any, error) {
			var p struct {
				CardID string `json:"card_id"`
			}
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			return svc.UpcomingEvents(ctx, p.CardID)
		},
		"contacts/search": func(ctx context.Context, params json.RawMessage) (any, error) {
			var p struct {
				AccountID string `json:"account_id"`
				Query     string `json:"query"`
			}
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			return svc.SearchContacts(ctx, p.AccountID, p.Query)
		},
		"ai/suggest": func(ctx context.Context, params json.RawMessage) (any, error) {
			var p struct {
				AccountID string `json:"account_id"`
				ThreadID  string `json:"thread_id"`
			}
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			return svc.SuggestReplies(ctx, p.AccountID, p.ThreadID)
		},
	}
}

func (s *Server) threadAction(action func(ctx context.Context, accountID, threadID string) error) apiHandler {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		var p struct {
			AccountID string `json:"account_id"`
			ThreadID  string `json:"thread_id"`
		}
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return nil, action(ctx, p.AccountID, p.ThreadID)
	}
}

// apiResponse is the envelope every endpoint answers with.
type apiResponse struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *Server) apiEndpoint(name string, handler apiHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, apiResponse{Error: "POST required"})
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiResponse{Error: "reading request body"})
			return
		}
		var params json.RawMessage
		if len(bytes.TrimSpace(body)) > 0 {
			params = body
		}

		start := time.Now()
		result, err := handler(r.Context(), params)
		if err != nil {
			s.logger.Warn("command failed",
				logging.Command(name),
				slog.Duration("duration", time.Since(start)),
				logging.Err(err))
			writeJSON(w, statusForError(err), apiResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Data: result})
	})
}

const maxRequestBody = 4 << 20

type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

func decode(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return badRequestError{errors.New("missing parameters")}
	}
	if err := json.Unmarshal(params, v); err != nil {
		return badRequestError{err}
	}
	return nil
}

func statusForError(err error) int {
	var badRequest badRequestError
	switch {
	case errors.As(err, &badRequest):
		return http.StatusBadRequest
	case errors.Is(err, cache.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
