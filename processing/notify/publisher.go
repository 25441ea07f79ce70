package notify

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

type Stage string

const (
	StageStarted   Stage = "started"
	StageProbed    Stage = "probed"
	StageExtracted Stage = "extracted"
	StageWritten   Stage = "written"
	StageSkipped   Stage = "skipped"
	StageFailed    Stage = "failed"
	StageFinished  Stage = "finished"
)

// Event is one progress notification of a conversion run.
type Event struct {
	RunID string    `json:"run_id"`
	Video string    `json:"video,omitempty"`
	Stage Stage     `json:"stage"`
	Error string    `json:"error,omitempty"`
	Done  int       `json:"done,omitempty"`
	Total int       `json:"total,omitempty"`
	Time  time.Time `json:"time"`
}

// Sink receives progress events. Publish must not block.
type Sink interface {
	Publish(Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(Event) {}

// Sinks fans an event out to several sinks.
type Sinks []Sink

func (s Sinks) Publish(e Event) {
	for _, sink := range s {
		sink.Publish(e)
	}
}

// Publisher sends events as JSON text messages to a websocket endpoint. It
// reconnects in the background; events published while the buffer is full
// are dropped.
type Publisher struct {
	serverURL  string
	retryDelay time.Duration

	events   chan Event
	stopChan chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	done     chan struct{}
}

func NewPublisher(serverURL string) *Publisher {
	return &Publisher{
		serverURL:  serverURL,
		retryDelay: 2 * time.Second,
		events:     make(chan Event, 64),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the connection loop. Later calls are no-ops.
func (p *Publisher) Start() {
	if p.started.CompareAndSwap(false, true) {
		go p.runLoop()
	}
}

// Stop flushes the events already buffered when a connection is up, then
// closes it. It returns immediately on a publisher that was never started.
func (p *Publisher) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
	if p.started.Load() {
		<-p.done
	}
}

func (p *Publisher) Publish(e Event) {
	select {
	case p.events <- e:
	default:
	}
}

func (p *Publisher) runLoop() {
	defer close(p.done)

	for {
		select {
		case <-p.stopChan:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(p.serverURL, nil)
		if err != nil {
			log.Printf("progress endpoint %s unavailable: %v. retrying in %s...", p.serverURL, err, p.retryDelay)
			select {
			case <-time.After(p.retryDelay):
				continue
			case <-p.stopChan:
				return
			}
		}

		stopped := p.serve(conn)
		conn.Close()

		if stopped {
			return
		}
	}
}

// serve pumps events into conn until the connection fails (false) or the
// publisher is stopped (true).
func (p *Publisher) serve(conn *websocket.Conn) bool {
	errChan := make(chan error, 1)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				errChan <- err
				return
			}
		}
	}()

	for {
		select {
		case e := <-p.events:
			if err := p.send(conn, e); err != nil {
				log.Printf("progress connection lost: %v", err)
				return false
			}

		case err := <-errChan:
			log.Printf("progress connection lost: %v", err)
			return false

		case <-p.stopChan:
			for {
				select {
				case e := <-p.events:
					if err := p.send(conn, e); err != nil {
						return true
					}
				default:
					msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
					conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
					return true
				}
			}
		}
	}
}

func (p *Publisher) send(conn *websocket.Conn, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
