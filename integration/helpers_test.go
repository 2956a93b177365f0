package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"bloodlink/internal/api"
	"bloodlink/internal/config"
	"bloodlink/internal/domain"
	"bloodlink/internal/lifecycle"
	"bloodlink/internal/notify"
	queuemem "bloodlink/internal/queue/memory"
	storemem "bloodlink/internal/store/memory"
)

// engine bundles everything a spec needs: the fiber app plus direct
// handles on the in-memory stores for seeding and inspection.
type engine struct {
	app           *fiber.App
	service       *lifecycle.Service
	alerts        *storemem.AlertRepository
	actors        *storemem.ActorRepository
	notifications *storemem.NotificationRepository
	feed          *queuemem.Queue
}

// newEngine wires a full memory-mode stack behind the HTTP API.
func newEngine(ttl time.Duration) *engine {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	alerts := storemem.NewAlertRepository()
	actors := storemem.NewActorRepository()
	notifications := storemem.NewNotificationRepository()
	locker := storemem.NewAlertLocker()
	feed := queuemem.NewQueue(100)

	dispatcher := notify.NewDispatcher(notify.NewLogTransport(logger), notifications, logger)
	service := lifecycle.NewService(
		alerts, actors, notifications, locker, dispatcher, feed,
		lifecycle.Options{TTL: ttl, PropagationFanout: 5},
		logger,
	)

	cfg := config.Default()
	server := api.NewServer(api.ServerDeps{
		Config:              &cfg.Server,
		Logger:              logger,
		AlertHandler:        api.NewAlertHandler(service, logger),
		NotificationHandler: api.NewNotificationHandler(notifications, logger),
		ActorHandler:        api.NewActorHandler(actors, logger),
	})

	return &engine{
		app:           server.App(),
		service:       service,
		alerts:        alerts,
		actors:        actors,
		notifications: notifications,
		feed:          feed,
	}
}

// seedClinic loads the standard cast: a doctor, an origin facility, two
// O+ donors in range, one out of range, and one AB- donor in range.
func (e *engine) seedClinic() {
	origin := domain.Location{Latitude: 3.87, Longitude: 11.52}
	near := domain.Location{Latitude: 3.915, Longitude: 11.52}
	far := domain.Location{Latitude: 6.5, Longitude: 3.4}

	e.actors.Put(&domain.Actor{ID: "doc-1", Role: domain.RoleDoctor, Name: "Dr. Mbarga", Active: true, PushToken: "tok-doc"})
	e.actors.Put(&domain.Actor{ID: "bank-origin", Role: domain.RoleFacility, Location: &origin, Active: true, PushToken: "tok-bank"})
	e.actors.Put(&domain.Actor{
		ID: "donor-1", Role: domain.RoleDonor, Name: "Nadia",
		BloodType: domain.BloodOPos, Location: &near, Active: true, PushToken: "tok-1",
	})
	e.actors.Put(&domain.Actor{
		ID: "donor-2", Role: domain.RoleDonor, Name: "Paul",
		BloodType: domain.BloodOPos, Location: &origin, Active: true, PushToken: "tok-2",
	})
	e.actors.Put(&domain.Actor{
		ID: "donor-far", Role: domain.RoleDonor,
		BloodType: domain.BloodOPos, Location: &far, Active: true, PushToken: "tok-3",
	})
	e.actors.Put(&domain.Actor{
		ID: "donor-ab", Role: domain.RoleDonor,
		BloodType: domain.BloodABNeg, Location: &near, Active: true, PushToken: "tok-4",
	})
}

// request performs an in-process HTTP request as the given actor.
func (e *engine) request(method, path, asActor string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if asActor != "" {
		req.Header.Set("X-Actor-ID", asActor)
	}

	return e.app.Test(req, -1)
}

// parseData decodes the envelope's data field into target.
func parseData(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return err
	}
	if target == nil {
		return nil
	}
	return json.Unmarshal(envelope.Data, target)
}

// parseError decodes the envelope's error code.
func parseError(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var envelope struct {
		Success bool `json:"success"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", err
	}
	if envelope.Error == nil {
		return "", nil
	}
	return envelope.Error.Code, nil
}
