// Package monitor is a thin websocket broadcaster the render manager can
// optionally attach to: a headless dashboard can watch preview frames
// and frame/render-completion stats without the manager knowing or
// caring how many viewers are connected.
package monitor

import (
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/image/draw"

	"github.com/voxtrace/voxtrace/pkg/core"
)

// FrameEvent carries a downsampled preview PNG plus the scheduling stats
// from spec.md §6's onFrameCompleted callback.
type FrameEvent struct {
	Type string  `json:"type"`
	SPP  uint32  `json:"spp"`
	PNG  []byte  `json:"png"`
}

// RenderCompleteEvent mirrors onRenderCompleted.
type RenderCompleteEvent struct {
	Type              string  `json:"type"`
	ElapsedMillis     int64   `json:"elapsed_ms"`
	SamplesPerSecond  float64 `json:"samples_per_second"`
}

// Monitor upgrades incoming HTTP connections to websockets and fans out
// whatever is pushed to it via Broadcast*. It never touches scene state
// directly — the manager is the only producer.
type Monitor struct {
	logger   core.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte

	// PreviewMaxWidth bounds the broadcast preview's resolution; frames
	// wider than this are downsampled with a high-quality interpolator
	// before encoding, to keep the websocket fanout cheap regardless of
	// the render's native resolution.
	PreviewMaxWidth int
}

// New creates a monitor. logger may be nil.
func New(logger core.Logger) *Monitor {
	return &Monitor{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:         make(map[*websocket.Conn]chan []byte),
		PreviewMaxWidth: 960,
	}
}

// Handler upgrades the connection and registers it as a fanout target
// until the client disconnects or a write stalls past its deadline.
func (m *Monitor) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := m.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		out := make(chan []byte, 8)
		m.mu.Lock()
		m.clients[conn] = out
		m.mu.Unlock()

		defer func() {
			m.mu.Lock()
			delete(m.clients, conn)
			m.mu.Unlock()
			conn.Close()
		}()

		for msg := range out {
			if err := conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// BroadcastFrame implements the onFrameCompleted hook: it downsamples
// front (if wider than PreviewMaxWidth) via golang.org/x/image/draw's
// Catmull-Rom interpolator, encodes PNG, and fans the result out.
func (m *Monitor) BroadcastFrame(front *image.RGBA, spp uint32) {
	encoded, err := m.encodePreview(front)
	if err != nil {
		if m.logger != nil {
			m.logger.Printf("monitor: encoding preview frame: %v\n", err)
		}
		return
	}

	payload, err := json.Marshal(FrameEvent{Type: "frame", SPP: spp, PNG: encoded})
	if err != nil {
		return
	}
	m.broadcast(payload)
}

// BroadcastRenderCompleted implements the onRenderCompleted hook.
func (m *Monitor) BroadcastRenderCompleted(elapsedMillis int64, samplesPerSecond float64) {
	payload, err := json.Marshal(RenderCompleteEvent{
		Type: "render_completed", ElapsedMillis: elapsedMillis, SamplesPerSecond: samplesPerSecond,
	})
	if err != nil {
		return
	}
	m.broadcast(payload)
}

func (m *Monitor) encodePreview(front *image.RGBA) ([]byte, error) {
	bounds := front.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	src := image.Image(front)
	if m.PreviewMaxWidth > 0 && width > m.PreviewMaxWidth {
		scale := float64(m.PreviewMaxWidth) / float64(width)
		dstW := m.PreviewMaxWidth
		dstH := int(float64(height) * scale)
		dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), front, bounds, draw.Over, nil)
		src = dst
	}

	var buf imageBuffer
	if err := png.Encode(&buf, src); err != nil {
		return nil, err
	}
	return buf.data, nil
}

// imageBuffer is a minimal io.Writer sink; avoids importing bytes just
// for one accumulate-then-return call site.
type imageBuffer struct {
	data []byte
}

func (b *imageBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (m *Monitor) broadcast(payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for conn, out := range m.clients {
		select {
		case out <- payload:
		default:
			if m.logger != nil {
				m.logger.Printf("monitor: dropping frame for slow client %v\n", conn.RemoteAddr())
			}
		}
	}
}
