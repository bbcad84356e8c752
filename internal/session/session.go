// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	internal_audio "github.com/rapidaai/voice-gateway/internal/audio"
	internal_language "github.com/rapidaai/voice-gateway/internal/language"
	internal_transformer "github.com/rapidaai/voice-gateway/internal/transformer"
	internal_vad "github.com/rapidaai/voice-gateway/internal/vad"
	"github.com/rapidaai/voice-gateway/pkg/commons"
)

const (
	// outboundQueueSize bounds pending outbound frames; producers block
	// when the writer falls behind.
	outboundQueueSize = 32

	// placeholderSilenceMs is played when TTS fails outright, so the
	// caller never hears dead air after speaking.
	placeholderSilenceMs = 500

	closeReasonInactivity = "Call ended due to inactivity"
)

// MediaConn is the slice of the websocket connection the session
// writes through. *websocket.Conn satisfies it.
type MediaConn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Config tunes one call session. Zero values fall back to defaults.
type Config struct {
	DefaultLanguage        string
	MaxHistory             int
	SilenceWarningInterval time.Duration
	MaxSilenceWarnings     int
	MinAccumulation        time.Duration
	MaxBuffer              time.Duration
	ShutdownGrace          time.Duration
}

func (c *Config) normalize() {
	if !internal_language.IsSupported(c.DefaultLanguage) {
		c.DefaultLanguage = internal_language.DefaultLanguage
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = 20
	}
	if c.SilenceWarningInterval <= 0 {
		c.SilenceWarningInterval = 30 * time.Second
	}
	if c.MaxSilenceWarnings < 0 {
		c.MaxSilenceWarnings = 2
	}
	if c.MinAccumulation <= 0 {
		c.MinAccumulation = 3 * time.Second
	}
	if c.MaxBuffer <= 0 {
		c.MaxBuffer = 60 * time.Second
	}
	if c.ShutdownGrace < 0 {
		c.ShutdownGrace = 3 * time.Second
	}
}

// Options wires a session's collaborators.
type Options struct {
	Logger   commons.Logger
	Conn     MediaConn
	Config   Config
	STT      internal_transformer.SpeechToText
	Dialogue internal_transformer.Dialogue
	TTS      internal_transformer.TextToSpeech
	VAD      *internal_vad.Detector
}

// Session owns one media websocket and drives the turn pipeline for
// one call.
type Session struct {
	logger commons.Logger
	cfg    Config
	conn   MediaConn
	stt    internal_transformer.SpeechToText
	llm    internal_transformer.Dialogue
	tts    internal_transformer.TextToSpeech
	vad    *internal_vad.Detector

	id        string
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc

	mu               sync.Mutex
	state            State
	meta             *StreamMetadata
	language         string
	detectedLanguage string
	history          []internal_transformer.Message
	waitingForUser   bool
	greetingSent     bool
	silenceWarnings  int
	lastUserSpeechAt time.Time
	lastAIResponseAt time.Time
	status           string
	webhookData      map[string]interface{}
	watchdog         *time.Timer

	bufMu       sync.Mutex
	buffer      [][]byte
	bufferedMs  float64
	lastDrainAt time.Time

	processing atomic.Bool
	turnMu     sync.Mutex

	chunkCounter atomic.Uint64
	pendingAudio atomic.Int64
	callEnded    atomic.Bool
	outCh        chan outFrame

	teardownOnce sync.Once
	writerDone   chan struct{}
}

// NewSession builds a session for an upgraded media connection. Start
// must be called before frames are handled.
func NewSession(id string, opts Options) *Session {
	opts.Config.normalize()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		logger:     opts.Logger,
		cfg:        opts.Config,
		conn:       opts.Conn,
		stt:        opts.STT,
		llm:        opts.Dialogue,
		tts:        opts.TTS,
		vad:        opts.VAD,
		id:         id,
		startedAt:  time.Now(),
		ctx:        ctx,
		cancel:     cancel,
		state:      StateConnected,
		language:   opts.Config.DefaultLanguage,
		outCh:      make(chan outFrame, outboundQueueSize),
		writerDone: make(chan struct{}),
	}
}

// Start launches the outbound writer loop.
func (s *Session) Start() {
	go s.writeLoop()
}

// ============================================================
// Accessors
// ============================================================

func (s *Session) ID() string { return s.id }

func (s *Session) StartedAt() time.Time { return s.startedAt }

func (s *Session) CallID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil {
		return ""
	}
	return s.meta.CallID
}

func (s *Session) StreamID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil {
		return ""
	}
	return s.meta.StreamID
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// DetectedLanguage is the last language STT reported for the caller,
// empty until the first transcription.
func (s *Session) DetectedLanguage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detectedLanguage
}

// History returns a copy of the conversation so far.
func (s *Session) History() []internal_transformer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]internal_transformer.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Snapshot summarizes the session for the active-calls API.
type Snapshot struct {
	ConnectionID     string                 `json:"connection_id"`
	CallID           string                 `json:"call_id,omitempty"`
	StreamID         string                 `json:"stream_id,omitempty"`
	State            string                 `json:"state"`
	Language         string                 `json:"language"`
	DetectedLanguage string                 `json:"detected_language,omitempty"`
	Status           string                 `json:"status,omitempty"`
	StartedAt        time.Time              `json:"started_at"`
	SilenceWarnings  int                    `json:"silence_warnings"`
	HistoryLength    int                    `json:"history_length"`
	WebhookData      map[string]interface{} `json:"webhook_data,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ConnectionID:     s.id,
		State:            string(s.state),
		Language:         s.language,
		DetectedLanguage: s.detectedLanguage,
		Status:           s.status,
		StartedAt:        s.startedAt,
		SilenceWarnings:  s.silenceWarnings,
		HistoryLength:    len(s.history),
		WebhookData:      s.webhookData,
	}
	if s.meta != nil {
		snap.CallID = s.meta.CallID
		snap.StreamID = s.meta.StreamID
	}
	return snap
}

// ApplyWebhook merges a provider status update into the live session.
func (s *Session) ApplyWebhook(status string, data map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status != "" {
		s.status = status
	}
	if data != nil {
		s.webhookData = data
	}
}

// ============================================================
// Inbound frames
// ============================================================

// HandleMessage processes one text frame from the media websocket.
// Protocol errors are logged and swallowed; only socket failures tear
// the session down, and those surface in the gateway's read loop.
func (s *Session) HandleMessage(raw []byte) {
	if s.callEnded.Load() {
		return
	}
	var frame InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.logger.Warnw("session: dropping malformed frame", "connection", s.id, "error", err)
		return
	}
	switch frame.Type {
	case FrameStart:
		s.handleStart(frame)
	case FrameAudio:
		s.handleAudio(frame)
	case FrameStop:
		s.logger.Infow("session: provider stopped stream", "connection", s.id, "call", frame.CallID)
		s.End()
	default:
		s.logger.Warnw("session: ignoring unknown frame type", "connection", s.id, "type", frame.Type)
	}
}

func (s *Session) handleStart(frame InboundFrame) {
	audio := internal_audio.DefaultTelephonyConfig()
	if frame.Data.Encoding != "" {
		audio.Encoding = frame.Data.Encoding
	}
	if frame.Data.SampleRate > 0 {
		audio.SampleRate = frame.Data.SampleRate
	}
	if frame.Data.Channels > 0 {
		audio.Channels = frame.Data.Channels
	}

	s.mu.Lock()
	if s.meta != nil {
		s.mu.Unlock()
		s.logger.Warnw("session: duplicate start frame ignored", "connection", s.id)
		return
	}
	s.meta = &StreamMetadata{
		AccountID: frame.AccountID,
		CallAppID: frame.CallAppID,
		CallID:    frame.CallID,
		StreamID:  frame.StreamID,
		Audio:     audio,
	}
	s.state = StateGreeting
	s.mu.Unlock()

	s.logger.Infow("session: stream started",
		"connection", s.id, "call", frame.CallID, "stream", frame.StreamID,
		"encoding", audio.Encoding, "sample_rate", audio.SampleRate)
	go s.greet()
}

func (s *Session) handleAudio(frame InboundFrame) {
	if frame.Data.AudioB64 == "" {
		return
	}
	raw, err := internal_audio.DecodeBase64(frame.Data.AudioB64)
	if err != nil {
		s.logger.Debugw("session: dropping undecodable audio chunk", "connection", s.id, "error", err)
		return
	}

	pcm := raw
	if s.encoding() == internal_audio.EncodingMuLaw {
		pcm = internal_audio.MuLawToL16(raw)
	}
	pcm = internal_audio.Align(pcm, internal_audio.SampleWidth)
	if len(pcm) == 0 {
		return
	}

	sr := s.sampleRate()
	chunkMs := float64(len(pcm)) / float64(internal_audio.SampleWidth) / float64(sr) * 1000

	s.bufMu.Lock()
	s.buffer = append(s.buffer, pcm)
	s.bufferedMs += chunkMs
	maxMs := s.cfg.MaxBuffer.Seconds() * 1000
	for s.bufferedMs > maxMs && len(s.buffer) > 1 {
		dropped := s.buffer[0]
		s.buffer = s.buffer[1:]
		s.bufferedMs -= float64(len(dropped)) / float64(internal_audio.SampleWidth) / float64(sr) * 1000
		s.logger.Warnw("session: audio buffer over limit, dropping oldest chunk",
			"connection", s.id, "dropped_bytes", len(dropped))
	}
	ready := s.bufferedMs >= float64(s.cfg.MinAccumulation.Milliseconds())
	s.bufMu.Unlock()

	if !ready {
		return
	}
	s.mu.Lock()
	eligible := s.waitingForUser && s.greetingSent
	if eligible && !s.processing.Load() {
		s.state = StateAccumulating
	}
	s.mu.Unlock()
	if eligible && !s.processing.Load() {
		go s.processTurn()
	}
}

// ============================================================
// Turn pipeline
// ============================================================

func (s *Session) greet() {
	lang := s.Language()
	text := internal_language.GreetingFor(lang)
	s.appendHistory(internal_transformer.RoleAssistant, text)
	s.sendSpeech(text, lang)

	s.mu.Lock()
	s.greetingSent = true
	s.waitingForUser = true
	s.lastAIResponseAt = time.Now()
	s.lastUserSpeechAt = time.Now()
	if s.state == StateGreeting {
		s.state = StateListening
	}
	s.watchdog = time.AfterFunc(s.cfg.SilenceWarningInterval, s.onWatchdogTick)
	s.mu.Unlock()
}

// processTurn drains the buffer and runs VAD → STT → dialogue → TTS.
// One turn at a time per session; re-entrant calls bail on the CAS.
func (s *Session) processTurn() {
	// The processing flag and waitingForUser flip together under mu so
	// a turn in flight is never observed still waiting for the user.
	s.mu.Lock()
	if !s.processing.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return
	}
	s.waitingForUser = false
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.processing.Store(false)
		s.waitingForUser = true
		s.mu.Unlock()
	}()

	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	s.setState(StateProcessing)
	defer s.setStateIfNotEnded(StateListening)

	s.bufMu.Lock()
	chunks := s.buffer
	s.buffer = nil
	s.bufferedMs = 0
	s.lastDrainAt = time.Now()
	s.bufMu.Unlock()

	pcm := internal_audio.Concat(chunks)
	if len(pcm) == 0 || s.callEnded.Load() {
		return
	}
	sr := s.sampleRate()

	if !s.vad.HasSpeech(pcm, sr) {
		s.logger.Debugw("session: buffer has no speech, skipping turn",
			"connection", s.id, "buffer_ms", internal_audio.Stats(pcm, sr).DurationMs)
		return
	}
	if filtered := s.vad.FilterSpeech(pcm, sr); len(filtered) > 0 {
		pcm = filtered
	}

	lang := s.Language()
	transcript, err := s.stt.Transcribe(s.ctx, pcm, sr, lang)
	if err != nil {
		s.logger.Warnw("session: transcription failed, skipping turn", "connection", s.id, "error", err)
		return
	}
	text := strings.TrimSpace(transcript.Text)
	if !Meaningful(text) {
		s.logger.Debugw("session: transcript not meaningful, skipping turn",
			"connection", s.id, "transcript", text)
		return
	}
	s.noteUserSpeech()
	s.noteDetectedLanguage(transcript.Language)

	// A switch request or a language change yields a confirmation turn
	// without a dialogue call. STT's own detection outranks the script
	// heuristic, which only runs when the provider stayed on the hint.
	newLang, switched := internal_language.DetectSwitchRequest(text)
	if !switched {
		if heard := transcript.Language; internal_language.IsSupported(heard) && heard != lang {
			newLang, switched = heard, true
		} else if detected := internal_language.DetectFromText(text, lang); detected != lang {
			newLang, switched = detected, true
		}
	}
	if switched && newLang != lang && internal_language.IsSupported(newLang) {
		s.setLanguage(newLang)
		s.logger.Infow("session: language switched", "connection", s.id, "from", lang, "to", newLang)
		s.clearPendingPlayback()
		s.sendSpeech(internal_language.SwitchConfirmation(newLang), newLang)
		s.noteResponse()
		return
	}

	s.appendHistory(internal_transformer.RoleUser, text)
	reply, err := s.llm.Reply(s.ctx, text, s.History(), lang)
	if err != nil || strings.TrimSpace(reply) == "" {
		s.logger.Warnw("session: dialogue failed, using fallback", "connection", s.id, "error", err)
		reply = internal_language.FallbackReply(lang)
	}
	s.appendHistory(internal_transformer.RoleAssistant, reply)

	if s.callEnded.Load() {
		return
	}
	s.clearPendingPlayback()
	s.sendSpeech(reply, lang)
	s.noteResponse()
}

// sendSpeech synthesizes text and queues the audio. TTS failure plays
// a short silence placeholder instead of dropping the turn outright.
func (s *Session) sendSpeech(text, lang string) {
	sr := s.sampleRate()
	pcm, err := s.tts.Synthesize(s.ctx, text, lang, sr)
	if err != nil || len(pcm) == 0 {
		s.logger.Warnw("session: synthesis failed, sending placeholder silence",
			"connection", s.id, "error", err)
		pcm = make([]byte, sr*internal_audio.SampleWidth*placeholderSilenceMs/1000)
	}
	s.enqueueAudio(pcm)
}

// ============================================================
// Outbound path
// ============================================================

func (s *Session) enqueueAudio(pcm []byte) {
	if s.callEnded.Load() {
		return
	}
	s.pendingAudio.Add(1)
	select {
	case s.outCh <- outFrame{kind: frameKindAudio, pcm: pcm}:
	case <-s.ctx.Done():
		s.pendingAudio.Add(-1)
	}
}

func (s *Session) enqueueControl(f outFrame) {
	if s.callEnded.Load() {
		return
	}
	select {
	case s.outCh <- f:
	case <-s.ctx.Done():
	}
}

// clearPendingPlayback sends a clear frame only when previously queued
// audio may still be playing; a quiet pipeline needs no barge-in.
func (s *Session) clearPendingPlayback() {
	if s.pendingAudio.Load() > 0 {
		s.enqueueControl(outFrame{kind: frameKindClear})
	}
}

// Interrupt asks the caller-side player to stop at the latest chunk.
func (s *Session) Interrupt() {
	s.enqueueControl(outFrame{kind: frameKindInterrupt, chunkID: s.chunkCounter.Load()})
}

// ClearPlayback unconditionally drops the caller-side playback buffer.
func (s *Session) ClearPlayback() {
	s.enqueueControl(outFrame{kind: frameKindClear})
}

func (s *Session) writeLoop() {
	defer close(s.writerDone)
	for {
		select {
		case <-s.ctx.Done():
			return
		case f := <-s.outCh:
			s.writeFrame(f)
		}
	}
}

// writeFrame serializes and sends one frame. Audio chunk ids are
// assigned here so they are strictly increasing in send order.
func (s *Session) writeFrame(f outFrame) {
	if s.callEnded.Load() {
		if f.kind == frameKindAudio {
			s.pendingAudio.Add(-1)
		}
		return
	}

	var payload []byte
	var err error
	switch f.kind {
	case frameKindAudio:
		wire := f.pcm
		if s.encoding() == internal_audio.EncodingMuLaw {
			wire = internal_audio.L16ToMuLaw(wire)
		}
		payload, err = json.Marshal(outboundAudioFrame{
			Type:     frameKindAudio,
			AudioB64: internal_audio.EncodeBase64(wire),
			ChunkID:  s.chunkCounter.Add(1),
		})
	case frameKindInterrupt:
		payload, err = json.Marshal(outboundInterruptFrame{Type: frameKindInterrupt, ChunkID: f.chunkID})
	case frameKindClear:
		payload, err = json.Marshal(outboundClearFrame{Type: frameKindClear})
	default:
		return
	}
	if err != nil {
		s.logger.Errorw("session: serializing outbound frame", "connection", s.id, "error", err)
		return
	}

	writeErr := s.conn.WriteMessage(websocket.TextMessage, payload)
	if f.kind == frameKindAudio {
		s.pendingAudio.Add(-1)
	}
	if writeErr != nil {
		s.logger.Warnw("session: outbound write failed", "connection", s.id, "error", writeErr)
		s.Teardown()
	}
}

// ============================================================
// Silence watchdog and teardown
// ============================================================

func (s *Session) onWatchdogTick() {
	if s.callEnded.Load() {
		return
	}

	// A stalled gate gets force-drained instead of a silence warning.
	s.bufMu.Lock()
	stalled := len(s.buffer) > 0 && time.Since(s.lastDrainAt) >= 2*s.cfg.MinAccumulation
	s.bufMu.Unlock()
	if stalled {
		s.logger.Infow("session: forcing buffer drain from watchdog", "connection", s.id)
		go s.processTurn()
		s.resetWatchdog()
		return
	}

	s.mu.Lock()
	warnings := s.silenceWarnings
	lang := s.language
	if warnings < s.cfg.MaxSilenceWarnings {
		s.silenceWarnings++
	}
	s.mu.Unlock()

	if warnings < s.cfg.MaxSilenceWarnings {
		s.logger.Infow("session: silence warning", "connection", s.id, "warning", warnings+1)
		s.sendSpeech(internal_language.SilencePrompt(lang, warnings), lang)
		s.resetWatchdog()
		return
	}
	go s.endForInactivity()
}

func (s *Session) resetWatchdog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchdog != nil && !s.callEnded.Load() {
		s.watchdog.Reset(s.cfg.SilenceWarningInterval)
	}
}

func (s *Session) endForInactivity() {
	s.setState(StateEnding)
	lang := s.Language()
	s.logger.Infow("session: ending call for inactivity", "connection", s.id)
	s.sendSpeech(internal_language.FarewellFor(lang), lang)
	s.waitForFlush()
	s.closeWith(websocket.CloseNormalClosure, closeReasonInactivity)
	s.Teardown()
}

// Farewell speaks a goodbye and closes; used by process drain.
func (s *Session) Farewell(ctx context.Context) {
	if s.callEnded.Load() {
		return
	}
	s.setState(StateEnding)
	lang := s.Language()
	s.sendSpeech(internal_language.FarewellFor(lang), lang)
	select {
	case <-ctx.Done():
	case <-time.After(s.cfg.ShutdownGrace):
	}
	s.closeWith(websocket.CloseNormalClosure, "Service shutting down")
	s.Teardown()
}

// End terminates without a farewell, for provider-initiated stops.
func (s *Session) End() {
	s.Teardown()
}

func (s *Session) waitForFlush() {
	select {
	case <-s.ctx.Done():
	case <-time.After(s.cfg.ShutdownGrace):
	}
}

func (s *Session) closeWith(code int, reason string) {
	deadline := time.Now().Add(time.Second)
	if err := s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline); err != nil {
		s.logger.Debugw("session: close handshake failed", "connection", s.id, "error", err)
	}
}

// Teardown releases everything the session owns. Safe to call more
// than once and from any goroutine.
func (s *Session) Teardown() {
	s.teardownOnce.Do(func() {
		s.callEnded.Store(true)
		s.mu.Lock()
		s.state = StateEnded
		if s.watchdog != nil {
			s.watchdog.Stop()
		}
		s.mu.Unlock()
		s.cancel()
		s.conn.Close()
		s.bufMu.Lock()
		s.buffer = nil
		s.bufferedMs = 0
		s.bufMu.Unlock()
		s.logger.Infow("session: ended", "connection", s.id, "duration", time.Since(s.startedAt).String())
	})
}

// Ended reports whether teardown has run.
func (s *Session) Ended() bool {
	return s.callEnded.Load()
}

// ============================================================
// Small state helpers
// ============================================================

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEnded {
		s.state = st
	}
}

func (s *Session) setStateIfNotEnded(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEnded && s.state != StateEnding {
		s.state = st
	}
}

func (s *Session) noteDetectedLanguage(lang string) {
	if lang == "" {
		return
	}
	s.mu.Lock()
	s.detectedLanguage = lang
	s.mu.Unlock()
}

func (s *Session) setLanguage(lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = lang
}

func (s *Session) noteUserSpeech() {
	s.mu.Lock()
	s.lastUserSpeechAt = time.Now()
	s.silenceWarnings = 0
	s.mu.Unlock()
	s.resetWatchdog()
}

func (s *Session) noteResponse() {
	s.mu.Lock()
	s.waitingForUser = true
	s.lastAIResponseAt = time.Now()
	s.mu.Unlock()
	s.resetWatchdog()
}

// appendHistory adds one turn and trims oldest pairs past the cap,
// preserving role alternation with the assistant greeting first.
func (s *Session) appendHistory(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, internal_transformer.Message{Role: role, Content: content})
	for len(s.history) > s.cfg.MaxHistory {
		s.history = s.history[2:]
	}
}

func (s *Session) sampleRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil || s.meta.Audio.SampleRate <= 0 {
		return internal_audio.DefaultSampleRate
	}
	return s.meta.Audio.SampleRate
}

func (s *Session) encoding() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil {
		return internal_audio.EncodingL16
	}
	return s.meta.Audio.Encoding
}
