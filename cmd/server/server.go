package main

import (
	"net"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chunkymonkey/pkserver/config"
	"github.com/chunkymonkey/pkserver/connection"
	"github.com/chunkymonkey/pkserver/entity"
	"github.com/chunkymonkey/pkserver/frame"
	"github.com/chunkymonkey/pkserver/level"
	"github.com/chunkymonkey/pkserver/protocolstate"
	"github.com/chunkymonkey/pkserver/region"
	"github.com/chunkymonkey/pkserver/registry"
	"github.com/chunkymonkey/pkserver/tablist"
)

// validUsername mirrors the teacher's regexp.MustCompile username
// filter (chunkymonkey/game.go's validPlayerUsername), updated to the
// modern client's 3-16 character limit.
var validUsername = regexp.MustCompile(`^[A-Za-z0-9_]{3,16}$`)

// defaultPlayerEntityTypeID stands in for the "player" entry of the
// per-type entity registry spec.md keeps out of scope (gameplay
// logic); every connected player is spawned as this one fixed type.
const defaultPlayerEntityTypeID int32 = 128

// tickInterval matches the 20 Hz vanilla tick rate spec.md §5 names.
const tickInterval = time.Second / 20

// chunkLoadBudget bounds how many queued chunks a single viewer may be
// sent per tick, following the pacing spec.md §4.8/§8 scenario (d)
// describes for ChunkLoader.NextToLoad.
const chunkLoadBudget = 4

// keepAliveInterval is how often a fresh keep-alive challenge is
// issued to an idle connection, inside the configured timeout.
const keepAliveInterval = 10 * time.Second

// playerSession is everything the tick loop's keep-alive sweep and a
// connection's own goroutines need to hold strongly; level/entity/
// tablist viewer registrations are themselves only held weakly by
// those packages; dropping this struct is what makes a player vanish
// from every broadcast.
type playerSession struct {
	conn         *connection.Connection
	ka           *connection.KeepAlive
	lvlViewer    *level.Viewer
	entViewer    *entity.Viewer
	tabEntry     *tablist.Entry
	tabHandle    *tablist.ViewerHandle
	entityHandle *entity.Handle
}

// Server wires together every SPEC_FULL.md component this repo
// builds: the chunk store, entity manager and tab list for a single
// overworld-like dimension, the accept loop, and the tick loop that
// drives their per-viewer broadcast sweeps. Gameplay logic (movement
// physics, inventories, combat) is explicitly out of scope; this type
// only proves the wiring.
type Server struct {
	cfg   config.Config
	table registry.IDTable
	log   *logrus.Logger

	regionStore *region.Store
	overworld   *level.Level
	entities    *entity.Manager
	tabList     *tablist.TabList
	status      *connection.StatusResponder

	listener net.Listener

	mu       sync.Mutex
	sessions map[uuid.UUID]*playerSession
}

// NewServer builds a Server from cfg, opening the overworld region
// store under cfg.WorldRoot. The returned Server has not started
// accepting connections yet; call Serve for that.
func NewServer(cfg config.Config, log *logrus.Logger) (*Server, error) {
	table := registry.NewStatic()

	store, err := region.NewStore(cfg.WorldRoot, region.DimensionOverworld)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:         cfg,
		table:       table,
		log:         log,
		regionStore: store,
		overworld:   level.NewLevel(store, table),
		entities:    entity.NewManager(),
		tabList:     tablist.New(),
		sessions:    make(map[uuid.UUID]*playerSession),
	}
	s.status = connection.NewStatusResponder(table, cfg, protocolVersion, versionName, s.onlineCount)
	return s, nil
}

func (s *Server) onlineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Serve opens the listener and runs the accept loop and tick loop
// until the listener is closed.
func (s *Server) Serve() error {
	listener, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return err
	}
	s.listener = listener
	s.log.WithField("addr", s.cfg.ListenAddress).Info("listening")

	go s.acceptLoop()
	s.tickLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.log.WithError(err).Warn("listener accept stopped")
			return
		}
		go s.handleConnection(conn)
	}
}

// tickLoop runs forever at tickInterval, sweeping keep-alive state for
// every session and then driving each broadcast package's per-tick
// method, matching spec.md §5's "time.Ticker-driven goroutine, not a
// busy loop".
func (s *Server) tickLoop() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for range ticker.C {
		s.sweepKeepAlive()
		s.overworld.UpdateViewers(chunkLoadBudget)
		s.entities.Tick()
		s.tabList.UpdateViewers()
	}
}

func (s *Server) sweepKeepAlive() {
	now := time.Now()

	s.mu.Lock()
	sessions := make([]*playerSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		if sess.ka.Dead(now) {
			sess.conn.Log().Info("keep-alive timeout, closing connection")
			sess.conn.Close()
			continue
		}
		if pkt, due := sess.ka.DueChallenge(now); due {
			sess.conn.Send(pkt)
		}
	}
}

func (s *Server) removeSession(id uuid.UUID) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok && sess.entityHandle != nil {
		sess.entityHandle.Remove()
	}
}

// handleConnection drives one accepted socket through the full
// Handshake -> Status|Login -> Configuration -> Play progression,
// following the goroutine-per-connection, deferred-cleanup-on-error
// shape of the teacher's ConnHandler/pktHandler.
func (s *Server) handleConnection(netConn net.Conn) {
	c := connection.New(netConn, s.table, s.log)
	defer c.Close()

	raw, err := c.ReadPacket()
	if err != nil {
		return
	}
	decoded, err := protocolstate.DecodeHandshake(raw.Data)
	if err != nil {
		return
	}
	hs := decoded.(protocolstate.Handshake)

	next, err := protocolstate.NextState(hs.NextState)
	if err != nil {
		return
	}
	c.SetState(next)

	switch next {
	case registry.StateStatus:
		s.handleStatus(c)
	case registry.StateLogin:
		s.handleLogin(c)
	}
}

func (s *Server) handleStatus(c *connection.Connection) {
	for {
		raw, err := c.ReadPacket()
		if err != nil {
			return
		}
		name, ok := s.table.PacketName(registry.StateStatus, registry.Serverbound, raw.ID)
		if !ok {
			return
		}
		switch name {
		case "status_request":
			pkt, err := s.status.HandleStatusRequest()
			if err != nil {
				return
			}
			if err := c.Send(pkt); err != nil {
				return
			}
		case "ping_request":
			decoded, err := protocolstate.DecodePingRequest(raw.Data)
			if err != nil {
				return
			}
			pkt, err := s.status.HandlePingRequest(decoded.(protocolstate.PingRequest))
			if err != nil {
				return
			}
			c.Send(pkt)
			return
		default:
			return
		}
	}
}

func (s *Server) sendDisconnect(c *connection.Connection, state registry.State, reason string) {
	id, ok := s.table.PacketID(state, registry.Clientbound, "disconnect")
	if !ok {
		return
	}
	data, err := protocolstate.EncodeDisconnect(protocolstate.Disconnect{Reason: reason})
	if err != nil {
		return
	}
	c.Send(frame.RawPacket{ID: id, Data: data})
}

func (s *Server) handleLogin(c *connection.Connection) {
	raw, err := c.ReadPacket()
	if err != nil {
		return
	}
	decoded, err := protocolstate.DecodeLoginStart(raw.Data)
	if err != nil {
		return
	}
	login := decoded.(protocolstate.LoginStart)

	if !validUsername.MatchString(login.Username) {
		s.sendDisconnect(c, registry.StateLogin, "Invalid username.")
		return
	}

	// External identity-service authentication and the RSA/hash key
	// exchange are out of scope (spec.md Non-goals); every client goes
	// straight from LoginStart to LoginSuccess, as an offline-mode
	// vanilla server would. A configured compression threshold is
	// still negotiated here, per spec.md §8 scenario (b): the
	// Set Compression packet itself must cross the wire uncompressed,
	// and only packets sent after it use the new frame.Handler.
	if s.cfg.CompressionThreshold > 0 {
		if cid, ok := s.table.PacketID(registry.StateLogin, registry.Clientbound, "set_compression"); ok {
			data := protocolstate.EncodeSetCompression(protocolstate.SetCompression{Threshold: int32(s.cfg.CompressionThreshold)})
			if err := c.Send(frame.RawPacket{ID: cid, Data: data}); err != nil {
				return
			}
			c.SetCompression(s.cfg.CompressionThreshold, s.cfg.CompressionLevel)
		}
	}

	id, ok := s.table.PacketID(registry.StateLogin, registry.Clientbound, "login_success")
	if !ok {
		return
	}
	data, err := protocolstate.EncodeLoginSuccess(protocolstate.LoginSuccess{UUID: login.UUID, Username: login.Username})
	if err != nil {
		return
	}
	if err := c.Send(frame.RawPacket{ID: id, Data: data}); err != nil {
		return
	}

	raw, err = c.ReadPacket()
	if err != nil {
		return
	}
	if _, err := protocolstate.DecodeLoginAcknowledged(raw.Data); err != nil {
		return
	}
	c.SetState(registry.StateConfiguration)

	if !s.handleConfiguration(c) {
		return
	}
	c.SetState(registry.StatePlay)
	s.handlePlay(c, login)
}

func (s *Server) handleConfiguration(c *connection.Connection) bool {
	raw, err := c.ReadPacket()
	if err != nil {
		return false
	}
	name, ok := s.table.PacketName(registry.StateConfiguration, registry.Serverbound, raw.ID)
	if !ok || name != "client_information" {
		return false
	}
	if _, err := protocolstate.DecodeClientInformation(raw.Data); err != nil {
		return false
	}

	id, ok := s.table.PacketID(registry.StateConfiguration, registry.Clientbound, "finish_configuration")
	if !ok {
		return false
	}
	if err := c.Send(frame.RawPacket{ID: id, Data: protocolstate.EncodeFinishConfiguration()}); err != nil {
		return false
	}

	raw, err = c.ReadPacket()
	if err != nil {
		return false
	}
	name, ok = s.table.PacketName(registry.StateConfiguration, registry.Serverbound, raw.ID)
	if !ok || name != "finish_configuration" {
		return false
	}
	_, err = protocolstate.DecodeFinishConfiguration(raw.Data)
	return err == nil
}

func (s *Server) handlePlay(c *connection.Connection, login protocolstate.LoginStart) {
	sink := &playerSink{sender: c.Sender(), table: s.table, log: c.Log()}

	lvlViewer := s.overworld.AddViewer(sink)
	lvlViewer.Loader.Radius = int32(s.cfg.ViewDistance)
	lvlViewer.UpdateCenter(&level.ChunkPosition{ChunkX: 0, ChunkZ: 0})

	entViewer := s.entities.AddViewer(sink, float64(s.cfg.EntityDistance)*16)
	spawnPos := entity.Position{X: 0, Y: 64, Z: 0}
	entViewer.UpdateCenter(&spawnPos)

	entityHandle := s.entities.AddEntity(defaultPlayerEntityTypeID, login.UUID, spawnPos, entity.Rotation{})

	tabEntry := tablist.NewEntry(login.UUID, login.Username)
	s.tabList.AddEntry(tabEntry)
	tabHandle := s.tabList.AddViewer(sink)

	sess := &playerSession{
		conn:         c,
		ka:           connection.NewKeepAlive(s.table, time.Duration(s.cfg.KeepAliveTimeoutSecs)*time.Second, keepAliveInterval),
		lvlViewer:    lvlViewer,
		entViewer:    entViewer,
		tabEntry:     tabEntry,
		tabHandle:    tabHandle,
		entityHandle: entityHandle,
	}
	s.mu.Lock()
	s.sessions[login.UUID] = sess
	s.mu.Unlock()
	defer s.removeSession(login.UUID)

	c.Log().WithField("username", login.Username).Info("player joined")

	for {
		raw, err := c.ReadPacket()
		if err != nil {
			return
		}
		sess.ka.NoteInbound()

		name, ok := s.table.PacketName(registry.StatePlay, registry.Serverbound, raw.ID)
		if !ok {
			continue
		}
		if name == "keep_alive" {
			decoded, err := protocolstate.DecodeKeepAlive(raw.Data)
			if err != nil {
				continue
			}
			sess.ka.NoteChallengeAnswer(decoded.(protocolstate.KeepAlive).ID)
		}
		// Movement/chat/inventory packets are gameplay logic this repo
		// never interprets (spec.md Non-goals); every other serverbound
		// Play packet is read and discarded so framing stays in sync.
	}
}
