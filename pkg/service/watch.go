package service

import (
	"context"

	"github.com/Kush1612/BuckIt/pkg/api"
	"github.com/Kush1612/BuckIt/pkg/auth"
	"github.com/Kush1612/BuckIt/pkg/client"
	clierrors "github.com/Kush1612/BuckIt/pkg/errors"
	"github.com/Kush1612/BuckIt/pkg/logger"
	"github.com/Kush1612/BuckIt/pkg/realtime"
)

// WatchService keeps the active list's items fresh from realtime changes.
type WatchService struct {
	d         *Deps
	newClient func(realtime.Config, realtime.Subscription) *realtime.Client
	config    func() realtime.Config
}

// NewWatchService creates a new watch service
func NewWatchService(d *Deps) *WatchService {
	return &WatchService{
		d:         d,
		newClient: realtime.NewClient,
		config: func() realtime.Config {
			return realtime.DefaultConfig(client.Backend())
		},
	}
}

// Refresh is one re-fetch of the list. Change is nil for the initial load.
type Refresh struct {
	ListID  string           `json:"list_id"`
	Change  *realtime.Change `json:"change,omitempty"`
	Items   []api.Item       `json:"items"`
	Evicted int              `json:"evicted,omitempty"`
}

// WatchHandlers receive refreshes and channel status. Either may be nil.
type WatchHandlers struct {
	OnRefresh func(Refresh)
	OnStatus  func(realtime.Status, error)
}

// Watch loads the active list, then re-fetches it after every change until
// ctx is done. Changes that arrive during a re-fetch are folded into the
// next one.
func (s *WatchService) Watch(ctx context.Context, h WatchHandlers) error {
	creds, err := s.d.session(ctx)
	if err != nil {
		return err
	}
	l, err := s.d.activeList(ctx)
	if err != nil {
		return err
	}

	refresh := func(change *realtime.Change) error {
		r, err := s.fetch(ctx, l.ID)
		if err != nil {
			return err
		}
		r.Change = change
		if h.OnRefresh != nil {
			h.OnRefresh(*r)
		}
		return nil
	}
	if err := refresh(nil); err != nil {
		return err
	}

	rt := s.newClient(s.config(), realtime.ItemsOfList(l.ID))
	rt.SetAuthToken(creds.AccessToken)
	defer func() {
		st := rt.Stats()
		logger.Debug("Realtime closed", "messages", st.MessagesReceived, "reconnects", st.ReconnectCount)
		rt.Close()
	}()

	unsubAuth := s.d.Notifier.OnAuthStateChange(func(event auth.Event, _ *api.User) {
		if event == auth.EventTokenRefreshed {
			rt.SetAuthToken(client.AccessToken())
		}
	})
	defer unsubAuth()

	changes := make(chan realtime.Change, 1)
	unsubChange := rt.OnChange(func(c realtime.Change) {
		select {
		case changes <- c:
		default:
		}
	})
	defer unsubChange()

	unsubStatus := rt.OnStatus(func(st realtime.Status, err error) {
		logger.Debug("Realtime status", "status", st, "error", err)
		if h.OnStatus != nil {
			h.OnStatus(st, err)
		}
	})
	defer unsubStatus()

	if err := rt.Connect(ctx); err != nil {
		return clierrors.NewCLIError(clierrors.ErrorTypeNetwork, "failed to connect to realtime", err)
	}
	logger.Info("Watching list", "list_id", l.ID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-changes:
			logger.Debug("Item changed", "type", c.Type, "item_id", c.RowID())
			if err := refresh(&c); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Warn("Refresh failed", "list_id", l.ID, "error", err)
			}
		}
	}
}

// fetch re-reads the list's items and evicts pending uploads the rows now
// record.
func (s *WatchService) fetch(ctx context.Context, listID string) (*Refresh, error) {
	items, err := api.ItemsByList(ctx, listID, api.ItemQuery{})
	if err != nil && auth.IsSessionError(err) {
		if err := s.d.Session.HandleSessionError(ctx, err); err != nil {
			return nil, err
		}
		items, err = api.ItemsByList(ctx, listID, api.ItemQuery{})
	}
	if err != nil {
		return nil, err
	}

	var confirmed []string
	for _, item := range items {
		confirmed = append(confirmed, item.Photos...)
	}
	evicted, err := s.d.Pending.Reconcile(ctx, listID, confirmed)
	if err != nil {
		logger.Warn("Failed to reconcile pending uploads", "list_id", listID, "error", err)
	}
	return &Refresh{ListID: listID, Items: items, Evicted: evicted}, nil
}
