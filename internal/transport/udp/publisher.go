// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"wavelab/internal/analysis"
	applog "wavelab/internal/log"
)

// DefaultInterval is used when NewPublisher is given a non-positive interval.
const DefaultInterval = 16 * time.Millisecond

// headerSize is sequence (4) + timestamp (8) + count (2).
const headerSize = 14

// PacketSender is the part of Sender the Publisher needs.
type PacketSender interface {
	Send(data []byte) error
}

// Publisher periodically fetches the latest magnitudes from a
// SpectrumProvider, packs them into a binary frame and sends them over UDP.
// It runs in a separate goroutine managed by Start and Stop.
type Publisher struct {
	sender   PacketSender
	provider analysis.SpectrumProvider
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum uint32

	// Pre-allocated buffers for the hot path (buildAndSendPacket).
	magBuffer    []float64
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewPublisher creates a Publisher. If interval is not positive it defaults to
// DefaultInterval.
func NewPublisher(interval time.Duration, sender PacketSender, provider analysis.SpectrumProvider) (*Publisher, error) {
	if sender == nil {
		return nil, errors.New("udp publisher: sender cannot be nil")
	}
	if provider == nil {
		return nil, errors.New("udp publisher: spectrum provider cannot be nil")
	}

	size := provider.Size()
	if size > math.MaxUint16 {
		return nil, fmt.Errorf("udp publisher: %d magnitudes do not fit in one packet", size)
	}

	if interval <= 0 {
		interval = DefaultInterval
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	applog.Infof("UDPPublisher: Initializing (Interval: %s, Bins: %d)", interval, size)

	return &Publisher{
		sender:       sender,
		provider:     provider,
		interval:     interval,
		magBuffer:    make([]float64, size),
		f32Buffer:    make([]float32, size),
		packetBuffer: bytes.NewBuffer(make([]byte, 0, headerSize+4*size)),
	}, nil
}

// Start begins the periodic publishing process. Calling Start on a running
// Publisher is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Local copies so the goroutine never reads p.ticker or p.doneChan.
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Debugf("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it to exit.
// It is safe to call Stop multiple times.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("UDPPublisher: Publisher goroutine finished after %d packets.", p.sequenceNum)
	return nil
}

/*
UDP Packet Structure (BigEndian)

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |   Magnitude   |       Magnitudes        |
|      (uint32)     |  (int64, Unix nanos)  |     Count     |      (N * float32)      |
|                   |                       |    (uint16)   |    DC-centered order    |
+-------------------+-----------------------+---------------+-------------------------+
*/

// Packet is the decoded form of one UDP frame.
type Packet struct {
	Sequence   uint32
	Timestamp  int64
	Magnitudes []float32
}

// DecodePacket parses a frame produced by a Publisher.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < headerSize {
		return Packet{}, fmt.Errorf("packet too short: %d bytes", len(b))
	}
	pkt := Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:12])),
	}
	count := int(binary.BigEndian.Uint16(b[12:14]))
	if len(b) != headerSize+4*count {
		return Packet{}, fmt.Errorf("packet length %d does not match %d magnitudes", len(b), count)
	}
	pkt.Magnitudes = make([]float32, count)
	if err := binary.Read(bytes.NewReader(b[headerSize:]), binary.BigEndian, pkt.Magnitudes); err != nil {
		return Packet{}, fmt.Errorf("failed to decode magnitudes: %w", err)
	}
	return pkt, nil
}

// buildAndSendPacket runs on every tick: fetch, convert, pack, send.
func (p *Publisher) buildAndSendPacket() {
	// Providers backed by a session change size with the request.
	if size := p.provider.Size(); size != len(p.magBuffer) {
		if size > math.MaxUint16 {
			applog.Errorf("UDPPublisher: %d magnitudes do not fit in one packet", size)
			return
		}
		applog.Debugf("UDPPublisher: Resizing buffers from %d to %d bins", len(p.magBuffer), size)
		p.magBuffer = make([]float64, size)
		p.f32Buffer = make([]float32, size)
	}
	if len(p.magBuffer) == 0 {
		return
	}

	if err := p.provider.MagnitudesInto(p.magBuffer); err != nil {
		applog.Errorf("UDPPublisher: Error getting magnitudes: %v", err)
		return
	}
	for i, v := range p.magBuffer {
		p.f32Buffer[i] = float32(v)
	}

	p.sequenceNum++
	p.packetBuffer.Reset()

	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, time.Now().UnixNano())
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, uint16(len(p.f32Buffer)))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, p.f32Buffer)
	}
	if err != nil {
		applog.Errorf("UDPPublisher: Error packing data into binary buffer: %v", err)
		return
	}

	packet := p.packetBuffer.Bytes()
	if err := p.sender.Send(packet); err == nil {
		applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, len(packet))
	}
}

// Close stops the publisher goroutine.
func (p *Publisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*Publisher)(nil)
