package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/kevinxiao27/mergetree-intervals/interval"
	"github.com/kevinxiao27/mergetree-intervals/mergetree"
)

// room is one document's server-side state: the shared Document every
// connected client edits against, and the interval.Collection layered over
// it. The server is authoritative and acks an op the instant it applies it,
// so no client ever carries a pending/unacked op across the wire.
type room struct {
	mu    sync.Mutex
	doc   *mergetree.Document
	coll  *interval.Collection
	label string

	clients map[*websocket.Conn]bool
}

func newRoom(label string) *room {
	r := &room{label: label, clients: map[*websocket.Conn]bool{}}
	r.doc = mergetree.NewDocument("server")
	r.coll = interval.NewCollection(r.doc, label, r.submit)
	return r
}

// submit is the Collection's op-emission callback: since this server is
// authoritative, every op is acked immediately, then relayed to clients.
func (r *room) submit(op any) {
	switch o := op.(type) {
	case interval.AddOp:
		_ = r.coll.AckAdd(o.LocalSeq, o.LocalSeq)
		r.broadcast(WSMessage{Type: "interval-add", Data: o.Serialized})
	case interval.DeleteOp:
		r.coll.AckDelete(o.ID)
		r.broadcast(WSMessage{Type: "interval-delete", Data: o.ID})
	case interval.ChangeOp:
		r.coll.AckChange(o.ID, o.LocalSeq, o.Start != nil, o.End != nil)
		r.broadcast(WSMessage{Type: "interval-change", Data: o})
	}
}

func (r *room) broadcast(msg WSMessage) {
	for conn := range r.clients {
		conn.WriteJSON(msg)
	}
}

func (r *room) snapshot() DocumentResponse {
	return DocumentResponse{Content: string(r.doc.Content())}
}

type Server struct {
	mu    sync.Mutex
	rooms map[string]*room

	upgrader websocket.Upgrader
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type DocumentRequest struct {
	Agent string `json:"agent"`
	Pos   int    `json:"pos"`
	Text  string `json:"text,omitempty"`
	Len   int    `json:"len,omitempty"`
}

type DocumentResponse struct {
	Content string `json:"content"`
}

type IntervalRequest struct {
	ID         string         `json:"id,omitempty"`
	Start      int            `json:"start"`
	End        int            `json:"end"`
	Stickiness int            `json:"stickiness"`
	Properties map[string]any `json:"properties,omitempty"`
}

func NewServer() *Server {
	return &Server{
		rooms: make(map[string]*room),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) getRoom(docID string) *room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rm, exists := s.rooms[docID]; exists {
		return rm
	}
	rm := newRoom("comments")
	s.rooms[docID] = rm
	return rm
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	json.NewDecoder(r.Body).Decode(&req)

	docID := r.URL.Query().Get("doc")
	rm := s.getRoom(docID)

	log.Printf("INSERT: agent=%s pos=%d text=%s doc=%s", req.Agent, req.Pos, req.Text, docID)

	rm.mu.Lock()
	rm.doc.LocalInsertAs(req.Agent, req.Pos, req.Text)
	resp := rm.snapshot()
	rm.mu.Unlock()

	json.NewEncoder(w).Encode(resp)
	rm.broadcast(WSMessage{Type: "update", Data: resp})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	json.NewDecoder(r.Body).Decode(&req)

	docID := r.URL.Query().Get("doc")
	rm := s.getRoom(docID)

	log.Printf("DELETE: agent=%s pos=%d len=%d doc=%s", req.Agent, req.Pos, req.Len, docID)

	rm.mu.Lock()
	rm.doc.LocalDeleteAs(req.Agent, req.Pos, req.Len)
	resp := rm.snapshot()
	rm.mu.Unlock()

	json.NewEncoder(w).Encode(resp)
	rm.broadcast(WSMessage{Type: "update", Data: resp})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	docID := r.URL.Query().Get("doc")
	rm := s.getRoom(docID)

	rm.mu.Lock()
	resp := rm.snapshot()
	rm.mu.Unlock()

	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	docID := r.URL.Query().Get("doc")
	rm := s.getRoom(docID)

	rm.mu.Lock()
	rm.clients[conn] = true
	resp := rm.snapshot()
	rm.mu.Unlock()

	log.Printf("CLIENT CONNECTED: doc=%s total=%d", docID, len(rm.clients))

	conn.WriteJSON(WSMessage{Type: "init", Data: resp})

	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}

		log.Printf("MESSAGE: type=%s", msg.Type)

		payload, _ := json.Marshal(msg.Data)

		switch msg.Type {
		case "insert":
			var req DocumentRequest
			json.Unmarshal(payload, &req)
			rm.mu.Lock()
			rm.doc.LocalInsertAs(req.Agent, req.Pos, req.Text)
			resp := rm.snapshot()
			rm.mu.Unlock()
			rm.broadcast(WSMessage{Type: "update", Data: resp})

		case "delete":
			var req DocumentRequest
			json.Unmarshal(payload, &req)
			rm.mu.Lock()
			rm.doc.LocalDeleteAs(req.Agent, req.Pos, req.Len)
			resp := rm.snapshot()
			rm.mu.Unlock()
			rm.broadcast(WSMessage{Type: "update", Data: resp})

		case "interval-add":
			var req IntervalRequest
			json.Unmarshal(payload, &req)
			rm.mu.Lock()
			_, err := rm.coll.Add(req.Start, req.End, interval.Simple, interval.Stickiness(req.Stickiness), req.Properties)
			rm.mu.Unlock()
			if err != nil {
				log.Printf("interval-add failed: %v", err)
			}

		case "interval-delete":
			id, _ := msg.Data.(string)
			rm.mu.Lock()
			_, err := rm.coll.RemoveIntervalById(id)
			rm.mu.Unlock()
			if err != nil {
				log.Printf("interval-delete failed: %v", err)
			}

		case "interval-change":
			var req IntervalRequest
			json.Unmarshal(payload, &req)
			rm.mu.Lock()
			_, err := rm.coll.Change(req.ID, &req.Start, &req.End, nil)
			rm.mu.Unlock()
			if err != nil {
				log.Printf("interval-change failed: %v", err)
			}
		}
	}

	rm.mu.Lock()
	delete(rm.clients, conn)
	remaining := len(rm.clients)
	rm.mu.Unlock()
	log.Printf("CLIENT DISCONNECTED: doc=%s remaining=%d", docID, remaining)
}

func main() {
	server := NewServer()

	r := mux.NewRouter()
	r.HandleFunc("/ws", server.handleWebSocket)
	r.HandleFunc("/insert", server.handleInsert).Methods("POST")
	r.HandleFunc("/delete", server.handleDelete).Methods("POST")
	r.HandleFunc("/document", server.handleGet).Methods("GET")

	fmt.Println("API server starting on :8080")
	fmt.Println("WebSocket API: ws://localhost:8080/ws")
	log.Fatal(http.ListenAndServe(":8080", r))
}
