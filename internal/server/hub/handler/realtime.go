package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/Alwanly/social-hub/internal/data"
	"github.com/Alwanly/social-hub/internal/realtime"
	"github.com/Alwanly/social-hub/internal/server/hub/dto"
	"github.com/Alwanly/social-hub/pkg/logger"
	"github.com/Alwanly/social-hub/pkg/wrapper"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const pingInterval = 15 * time.Second

// realtimeStatus godoc
// @Summary      Realtime connection state
// @Tags         realtime
// @Produce      json
// @Success      200 {object} wrapper.JSONResult{data=dto.RealtimeStatus}
// @Router       /realtime [get]
// @Security     BearerAuth
func (h *Handler) realtimeStatus(c *fiber.Ctx) error {
	operation(c, "realtime_status")
	return respond(c, wrapper.Ok(dto.RealtimeStatus{
		State:    string(h.Realtime.State()),
		Channels: h.Realtime.Names(),
	}), fiber.StatusOK)
}

// realtimeEvents godoc
// @Summary      Stream realtime events
// @Description  Server-sent events, one "change" event per row change on any subscribed channel. The optional channel query keeps only that channel.
// @Tags         realtime
// @Produce      text/event-stream
// @Param        channel query string false "Channel name"
// @Success      200 {object} dto.RealtimeEvent
// @Router       /realtime/events [get]
// @Security     BearerAuth
func (h *Handler) realtimeEvents(c *fiber.Ctx) error {
	operation(c, "realtime_events")
	events, ok := h.relay.add()
	if !ok {
		return c.Status(fiber.StatusServiceUnavailable).JSON(wrapper.ResponseFailed(http.StatusServiceUnavailable, "shutting down", nil))
	}
	only := c.Query("channel")

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer h.relay.remove(events)
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		fmt.Fprint(w, ": connected\n\n")
		if w.Flush() != nil {
			return
		}
		for {
			select {
			case ev, open := <-events:
				if !open {
					return
				}
				if only != "" && ev.Channel != only {
					continue
				}
				body, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: change\ndata: %s\n\n", body)
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
			}
			if w.Flush() != nil {
				return
			}
		}
	})
	return nil
}

// subscribe godoc
// @Summary      Subscribe to a realtime channel
// @Description  Opens the channel of kind for keys and relays its changes to /realtime/events. Subscribing to the same channel again replaces the previous subscription.
// @Tags         realtime
// @Accept       json
// @Produce      json
// @Param        request body dto.SubscribeRequest true "Channel"
// @Success      201 {object} wrapper.JSONResult{data=dto.SubscriptionResponse}
// @Router       /realtime/subscriptions [post]
// @Security     BearerAuth
func (h *Handler) subscribe(c *fiber.Ctx) error {
	operation(c, "subscribe")
	req := new(dto.SubscribeRequest)
	if ok, err := bind(c, req); !ok {
		return err
	}
	kind := realtime.Kind(req.Kind)
	name, binding, err := realtime.Resolve(kind, req.Keys...)
	if err != nil {
		return respond(c, wrapper.Fail[dto.SubscriptionResponse](err), fiber.StatusCreated)
	}
	logger.AddToContext(c.UserContext(), logger.Channel(name))

	if err := h.authorizeChannel(c, kind, req.Keys); err != nil {
		return respond(c, wrapper.Fail[dto.SubscriptionResponse](err), fiber.StatusCreated)
	}

	// the subscription outlives the request
	ctx := context.WithoutCancel(c.UserContext())
	handle, err := h.Realtime.SubscribeChannel(ctx, name, binding, h.relayTo(name, kind),
		realtime.WithReplay(realtime.BackendReplay(h.Data.Backend(), binding)))
	return respond(c, wrapper.From(dto.SubscriptionResponse{
		Name:   handle.Name,
		Table:  handle.Binding.Table,
		Filter: handle.Binding.Filter,
	}, err), fiber.StatusCreated)
}

// authorizeChannel keeps private channels to the people they belong to.
func (h *Handler) authorizeChannel(c *fiber.Ctx, kind realtime.Kind, keys []string) error {
	userID := me(c)
	switch kind {
	case realtime.KindNotifications:
		if keys[0] != userID {
			return fmt.Errorf("%w: notifications of another user", data.ErrForbidden)
		}
	case realtime.KindMessages:
		participants, err := h.Data.ChatParticipants(c.UserContext(), keys[0]).Unwrap()
		if err != nil {
			return err
		}
		if !slices.Contains(participants, userID) {
			return fmt.Errorf("%w: not a participant of chat %s", data.ErrForbidden, keys[0])
		}
	}
	return nil
}

func (h *Handler) relayTo(name string, kind realtime.Kind) realtime.Callback {
	log := h.Logger.WithChannel(name)
	return func(ev realtime.Event) {
		dropped := h.relay.publish(dto.RealtimeEvent{
			Channel:         name,
			Kind:            string(ev.Kind),
			Table:           ev.Table,
			New:             ev.New,
			Old:             ev.Old,
			CommitTimestamp: ev.CommitTimestamp,
		})
		if dropped > 0 {
			log.Warn("event dropped by slow streams",
				zap.Int("dropped", dropped),
				logger.String(logger.FieldEventKind, string(ev.Kind)),
				zap.String("kind", string(kind)))
		}
	}
}

func (h *Handler) unsubscribe(c *fiber.Ctx) error {
	operation(c, "unsubscribe")
	name := c.Params("name")
	logger.AddToContext(c.UserContext(), logger.Channel(name))
	err := h.Realtime.Unsubscribe(c.UserContext(), name)
	return respond(c, wrapper.From(true, err), fiber.StatusOK)
}

func (h *Handler) suspend(c *fiber.Ctx) error {
	operation(c, "realtime_suspend")
	err := h.Realtime.Suspend(c.UserContext())
	return respond(c, wrapper.From(string(h.Realtime.State()), err), fiber.StatusOK)
}

func (h *Handler) resume(c *fiber.Ctx) error {
	operation(c, "realtime_resume")
	err := h.Realtime.Resume(c.UserContext())
	return respond(c, wrapper.From(string(h.Realtime.State()), err), fiber.StatusOK)
}

// unsubscribeAll godoc
// @Summary      Drop every realtime subscription
// @Tags         realtime
// @Produce      json
// @Success      200 {object} wrapper.JSONResult{data=int}
// @Router       /realtime [delete]
// @Security     BasicAuth
func (h *Handler) unsubscribeAll(c *fiber.Ctx) error {
	operation(c, "unsubscribe_all")
	n := h.Realtime.Len()
	err := h.Realtime.UnsubscribeAll(c.UserContext())
	return respond(c, wrapper.From(n, err), fiber.StatusOK)
}
