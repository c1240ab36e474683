package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"confbot/internal/apiclient"
	"confbot/internal/eventbus"
	"confbot/internal/programme"
	"confbot/internal/storage"
	"confbot/internal/task/scheduler"
	logx "confbot/pkg/logx"

	"golang.org/x/sync/errgroup"
)

const (
	roomHeader       = "*Next up in this room:*"
	fetchConcurrency = 8
	recordTimeout    = 2 * time.Second
)

func programmeHeader(lead time.Duration) string {
	return fmt.Sprintf("*Sessions starting in %s:*", humanLead(lead))
}

func humanLead(d time.Duration) string {
	if d%time.Minute != 0 {
		return d.String()
	}
	if m := int(d / time.Minute); m != 1 {
		return fmt.Sprintf("%d minutes", m)
	}
	return "1 minute"
}

// programmeTask sends one combined message for codes to every broadcast
// channel. Delivery failures are logged together and never returned.
func (n *Notifier) programmeTask(codes []string, lead time.Duration) scheduler.Task {
	return func(ctx context.Context) error {
		sessions := n.fetchSessions(ctx, codes)
		if len(sessions) == 0 {
			n.log.Error("programme notification skipped: no session information", logx.Strings("codes", codes))
			return nil
		}

		cfg := n.config()
		header := programmeHeader(lead)
		sent := sessionCodes(sessions)

		var (
			mu   sync.Mutex
			errs []error
			g    errgroup.Group
		)
		for _, ch := range cfg.Channels {
			ch := ch
			msg := buildMessage(header, sessions, cfg.embedOptions(ch.IncludeChannel))
			g.Go(func() error {
				if err := n.deliver(ctx, kindProgramme, ch.Webhook, msg, sent); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()

		if err := errors.Join(errs...); err != nil {
			n.log.Error("programme notification partially failed",
				logx.Int("failed", len(errs)),
				logx.Int("channels", len(cfg.Channels)),
				logx.Strings("codes", sent),
				logx.Err(err),
			)
		}
		return nil
	}
}

// roomTask sends the session's notification to its room webhook.
func (n *Notifier) roomTask(code string) scheduler.Task {
	return func(ctx context.Context) error {
		sess, ok := n.sessions.Fetch(ctx, code)
		if !ok {
			n.log.Error("room notification skipped: session information missing", logx.String("code", code))
			return nil
		}
		cfg := n.config()
		room, ok := cfg.Rooms.Lookup(sess.RoomID)
		if !ok {
			n.log.Error("room notification skipped: no room configuration",
				logx.String("code", code),
				logx.Int("room_id", sess.RoomID),
			)
			return nil
		}
		msg := buildMessage(roomHeader, []programme.Session{sess}, cfg.embedOptions(false))
		return n.deliver(ctx, kindRoom, room.Webhook, msg, []string{code})
	}
}

// fetchSessions looks up codes concurrently and keeps the input order.
// Unknown codes are logged and dropped.
func (n *Notifier) fetchSessions(ctx context.Context, codes []string) []programme.Session {
	found := make([]programme.Session, len(codes))
	ok := make([]bool, len(codes))

	var g errgroup.Group
	g.SetLimit(fetchConcurrency)
	for i, code := range codes {
		i, code := i, code
		g.Go(func() error {
			found[i], ok[i] = n.sessions.Fetch(ctx, code)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]programme.Session, 0, len(codes))
	var missing []string
	for i := range codes {
		if !ok[i] {
			missing = append(missing, codes[i])
			continue
		}
		out = append(out, found[i])
	}
	if len(missing) > 0 {
		n.log.Error("session information missing", logx.Strings("codes", missing))
	}
	return out
}

func buildMessage(header string, sessions []programme.Session, opts programme.EmbedOptions) programme.Message {
	embeds := make([]programme.Embed, 0, len(sessions))
	for _, s := range sessions {
		embeds = append(embeds, programme.BuildSessionEmbed(s, opts))
	}
	return programme.Message{Content: header, Embeds: embeds}
}

// deliver sends msg and records the attempt on the bus and in the store.
func (n *Notifier) deliver(ctx context.Context, kind, webhook string, msg programme.Message, codes []string) error {
	at := n.now()
	start := time.Now()
	err := n.api.Deliver(ctx, msg, webhook)
	took := time.Since(start)

	rec := storage.DeliveryRecord{
		At:       at,
		Kind:     kind,
		Webhook:  webhook,
		Sessions: codes,
		OK:       err == nil,
		TookMS:   took.Milliseconds(),
	}
	ev := eventbus.Delivery{Kind: kind, Webhook: webhook, Sessions: codes}
	typ := eventbus.TypeNotifyDelivered
	if err != nil {
		var de *apiclient.DeliveryError
		if errors.As(err, &de) {
			rec.Status = de.Status
		}
		rec.Error = err.Error()
		ev.Err = err.Error()
		typ = eventbus.TypeNotifyFailed
	}
	n.bus.Publish(eventbus.Event{Type: typ, Data: ev})

	if n.store != nil {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		if serr := n.store.AppendDelivery(sctx, rec); serr != nil {
			n.log.Debug("delivery record failed", logx.Err(serr))
		}
		cancel()
	}
	return err
}

func (n *Notifier) recordFetch(ctx context.Context, rec storage.FetchRecord) {
	if n.store == nil {
		return
	}
	rec.At = n.now()
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := n.store.AppendFetch(sctx, rec); err != nil {
		n.log.Debug("fetch record failed", logx.Err(err))
	}
}

func sessionCodes(sessions []programme.Session) []string {
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Code)
	}
	return out
}
