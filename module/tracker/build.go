package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dmarc0001/busmobile/module/tracker/display"
	"github.com/dmarc0001/busmobile/module/tracker/domain"
	handler "github.com/dmarc0001/busmobile/module/tracker/internal/handler/http"
	"github.com/dmarc0001/busmobile/module/tracker/internal/handler/subscriber"
	"github.com/dmarc0001/busmobile/module/tracker/internal/repository/database"
	"github.com/dmarc0001/busmobile/module/tracker/internal/repository/database/file"
	"github.com/dmarc0001/busmobile/module/tracker/internal/repository/database/postgres"
	"github.com/dmarc0001/busmobile/module/tracker/internal/repository/publisher"
	"github.com/dmarc0001/busmobile/module/tracker/internal/repository/publisher/rabbitmq"
	"github.com/dmarc0001/busmobile/module/tracker/internal/source/gpsd"
	"github.com/dmarc0001/busmobile/module/tracker/service"
)

var (
	_ service.PositionSource = (*gpsd.Client)(nil)
	_ service.PositionSource = (*subscriber.PositionSubscriber)(nil)
)

const (
	SourceGPSD = "gpsd"
	SourceMQTT = "mqtt"
)

type Options struct {
	Source    string
	GPSDAddr  string
	MQTTTopic string
	// FencesFile takes precedence over the fences table when both are set.
	FencesFile    string
	DisplaySocket string
	// DisplayQuitOnStop ends the display process when the tracker stops.
	DisplayQuitOnStop bool
	Engine            service.EngineConfig
}

type Module struct {
	Engine   *service.GeofenceEngine
	FenceSvc *service.FenceService
	handler  *handler.TrackerHandler
	display  *display.Client
}

// Build wires the tracker. db, amqpConn and mqttClient are optional; a nil
// backend disables the feature that needs it.
func Build(db *sql.DB, amqpConn *amqp.Connection, mqttClient mqtt.Client, opts Options) (*Module, error) {
	source, err := newPositionSource(mqttClient, opts)
	if err != nil {
		return nil, err
	}

	var pub publisher.EventPublisher
	if amqpConn != nil {
		p, err := rabbitmq.NewEventPublisher(amqpConn)
		if err != nil {
			return nil, fmt.Errorf("event publisher: %w", err)
		}
		pub = p
	}

	m := &Module{}
	engine := service.NewGeofenceEngine(source, opts.Engine, service.Handlers{})

	var notifier *service.NotificationService
	if opts.DisplaySocket != "" {
		m.display = display.NewClient(opts.DisplaySocket)
		m.display.QuitOnClose(opts.DisplayQuitOnStop)
		notifier = service.NewNotificationService(m.display, pub, engine.CurrentPosition)
	} else {
		notifier = service.NewNotificationService(nil, pub, engine.CurrentPosition)
	}
	engine.SetHandlers(notifier.Handlers())

	m.Engine = engine
	m.handler = handler.NewTrackerHandler(engine, nil)

	if repo := newFenceRepository(db, opts); repo != nil {
		m.FenceSvc = service.NewFenceService(repo, engine)
		m.handler = handler.NewTrackerHandler(engine, m.FenceSvc)
	}

	return m, nil
}

func newPositionSource(mqttClient mqtt.Client, opts Options) (service.PositionSource, error) {
	switch opts.Source {
	case SourceGPSD, "":
		return gpsd.NewClient(opts.GPSDAddr), nil
	case SourceMQTT:
		if mqttClient == nil {
			return nil, fmt.Errorf("position source %s: no mqtt client", opts.Source)
		}
		return subscriber.NewPositionSubscriber(mqttClient, opts.MQTTTopic), nil
	default:
		return nil, fmt.Errorf("unknown position source %q", opts.Source)
	}
}

func newFenceRepository(db *sql.DB, opts Options) database.FenceRepository {
	switch {
	case opts.FencesFile != "":
		return file.NewFenceRepo(opts.FencesFile)
	case db != nil:
		return postgres.NewFenceRepo(db)
	default:
		return nil
	}
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.handler.Register(r)
}

// Start loads the fences, opens the display channel and starts the engine.
// A missing display only logs; the client retries on later sends.
func (m *Module) Start(ctx context.Context) error {
	if m.FenceSvc != nil {
		n, err := m.FenceSvc.Reload(ctx)
		if err != nil {
			return err
		}
		log.Printf("loaded %d fences", n)
	} else {
		log.Printf("no fence source configured, tracking without fences")
	}

	if m.display != nil {
		if err := m.display.Connect(); err != nil {
			log.Printf("display: %v", err)
		}
	}

	return m.Engine.Start(ctx)
}

// Stop detaches the callbacks, stops the engine and leaves the display on a
// status screen, or ends the display process with DisplayQuitOnStop. It
// returns domain.ErrStopTimeout when the engine is still running after timeout.
func (m *Module) Stop(timeout time.Duration) error {
	m.Engine.ClearHandlers()
	if m.display != nil {
		if err := m.display.ShowStopping(); err != nil {
			log.Printf("display: %v", err)
		}
	}
	m.Engine.RequestStop()
	stopped := m.Engine.AwaitStopped(timeout)

	if m.display != nil {
		if err := m.display.Close(); err != nil {
			log.Printf("display close: %v", err)
		}
	}

	if !stopped {
		return domain.ErrStopTimeout
	}
	log.Printf("tracker stopped")
	return nil
}
