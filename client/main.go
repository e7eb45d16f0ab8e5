package main

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MsgTypeHeartbeat = 1
	MsgTypeSubscribe = 101
	MsgTypeSnapshot  = 301
	MsgTypeError     = 401
)

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

// post sends a JSON body to a room endpoint and prints the response.
func post(base, path string, body interface{}) {
	data, _ := json.Marshal(body)
	resp, err := http.Post(base+path, "application/json", bytes.NewReader(data))
	if err != nil {
		log.Printf("Request failed: %v", err)
		return
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	log.Printf("<- %s: %s", resp.Status, string(out))
}

func main() {
	server := flag.String("server", "localhost:8080", "game server address")
	device := flag.String("device", "demo-device", "device id")
	name := flag.String("name", "Demo", "player name")
	code := flag.String("room", "", "room code to join; empty creates a new room")
	flag.Parse()

	base := "http://" + *server
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	roomCode := *code
	if roomCode == "" {
		// Create a room and pull the code out of the snapshot.
		data, _ := json.Marshal(map[string]string{"device_id": *device, "name": *name})
		resp, err := http.Post(base+"/api/rooms", "application/json", bytes.NewReader(data))
		if err != nil {
			log.Fatalf("Create room failed: %v", err)
		}
		var snapshot struct {
			Room struct {
				Code string `json:"code"`
			} `json:"room"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
			log.Fatalf("Create room response unreadable: %v", err)
		}
		resp.Body.Close()
		roomCode = snapshot.Room.Code
		log.Printf("Created room %s", roomCode)
	} else {
		post(base, "/api/rooms/"+roomCode+"/join", map[string]string{"device_id": *device, "name": *name})
	}

	u := url.URL{Scheme: "ws", Host: *server, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			switch msgID {
			case MsgTypeSnapshot:
				log.Printf("<- SNAPSHOT: %s", string(data))
			case MsgTypeError:
				log.Printf("<- ERROR: %s", string(data))
			default:
				log.Printf("<- RECV (ID: %d): %s", msgID, string(data))
			}
		}
	}()

	subData, _ := json.Marshal(map[string]string{"device_id": *device, "room_code": roomCode})
	if err := send(c, MsgTypeSubscribe, subData); err != nil {
		log.Fatalf("Subscribe failed: %v", err)
	}

	fmt.Println("Commands: ready | unready | start | advance | clue <text> | pos <player_id> <n> | leave | quit")

	// Write loop
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			fields := strings.Fields(text)
			if len(fields) == 0 {
				continue
			}

			roomPath := "/api/rooms/" + roomCode
			switch fields[0] {
			case "ready":
				post(base, roomPath+"/ready", map[string]interface{}{"device_id": *device, "ready": true})
			case "unready":
				post(base, roomPath+"/ready", map[string]interface{}{"device_id": *device, "ready": false})
			case "start":
				post(base, roomPath+"/start", map[string]string{"device_id": *device})
			case "advance":
				post(base, roomPath+"/advance", map[string]string{"device_id": *device})
			case "clue":
				if len(fields) < 2 {
					fmt.Println("usage: clue <text>")
					continue
				}
				post(base, roomPath+"/clue", map[string]string{
					"device_id": *device,
					"clue":      strings.Join(fields[1:], " "),
				})
			case "pos":
				if len(fields) != 3 {
					fmt.Println("usage: pos <player_id> <n>")
					continue
				}
				n, err := strconv.Atoi(fields[2])
				if err != nil {
					fmt.Println("position must be a number")
					continue
				}
				post(base, roomPath+"/position", map[string]interface{}{
					"device_id": *device,
					"player_id": fields[1],
					"position":  n,
				})
			case "leave":
				post(base, roomPath+"/leave", map[string]string{"device_id": *device})
			case "quit":
				return
			default:
				fmt.Println("Unknown command:", fields[0])
			}
		}
	}
}
