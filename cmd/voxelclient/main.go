package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"voxelworld/internal/network"
	"voxelworld/internal/stream"
)

func main() {
	server := flag.String("server", "ws://127.0.0.1:8080/ws", "voxel world websocket endpoint")
	name := flag.String("name", "voxelclient", "player name sent in hello")
	press := flag.String("press", "w", "comma separated keys held for the whole run")
	yaw := flag.Float64("yaw", 0, "look yaw in radians")
	pitch := flag.Float64("pitch", 0, "look pitch in radians")
	dig := flag.Bool("dig", false, "remove the targeted block once after the first chunk arrives")
	duration := flag.Duration("duration", 3*time.Second, "how long to stay connected")
	flag.Parse()

	ws, _, err := websocket.DefaultDialer.Dial(*server, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	send := func(msgType network.MessageType, payload any) {
		raw, err := json.Marshal(payload)
		if err != nil {
			log.Fatalf("encode %s: %v", msgType, err)
		}
		data, err := network.Encode(network.Envelope{Type: msgType, Timestamp: time.Now().UTC(), Payload: raw})
		if err != nil {
			log.Fatalf("encode envelope: %v", err)
		}
		if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Fatalf("send %s: %v", msgType, err)
		}
	}

	send(network.MessageHello, network.Hello{Name: *name})

	var keys []string
	for _, k := range strings.Split(*press, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	send(network.MessageInput, network.Input{Press: keys, Look: &network.Look{Yaw: *yaw, Pitch: *pitch}})

	deadline := time.Now().Add(*duration)
	dug := false
	var states int
	var last network.State
	for time.Now().Before(deadline) {
		_ = ws.SetReadDeadline(deadline)
		kind, data, err := ws.ReadMessage()
		if err != nil {
			break
		}
		env, err := network.DecodeFrame(kind == websocket.BinaryMessage, data)
		if err != nil {
			log.Printf("decode frame: %v", err)
			continue
		}
		switch env.Type {
		case network.MessageWelcome:
			var w network.Welcome
			if err := json.Unmarshal(env.Payload, &w); err == nil {
				fmt.Printf("session %s on %s, tick %s, render distance %d\n", w.SessionID, w.ServerID, w.TickRate, w.RenderDistance)
			}
		case network.MessageChunk:
			var frame stream.Frame
			if err := json.Unmarshal(env.Payload, &frame); err != nil {
				log.Printf("decode chunk: %v", err)
				continue
			}
			fmt.Printf("chunk at %v (%d bytes, compressed=%v): %d placements, %d dropped\n",
				frame.Origin, len(data), kind == websocket.BinaryMessage, frame.Counters.Total(), frame.Dropped.Total())
			if *dig && !dug {
				send(network.MessageInput, network.Input{Primary: true})
				dug = true
			}
		case network.MessageEdit:
			var batch network.EditBatch
			if err := json.Unmarshal(env.Payload, &batch); err == nil {
				for _, e := range batch.Edits {
					fmt.Printf("edit (%d,%d,%d) %s placed=%v\n", e.X, e.Y, e.Z, e.Type, e.Placed)
				}
			}
		case network.MessageState:
			states++
			_ = json.Unmarshal(env.Payload, &last)
		case network.MessageError:
			var e network.Error
			_ = json.Unmarshal(env.Payload, &e)
			log.Printf("server error: %s", e.Message)
		}
	}

	fmt.Printf("received %d state updates\n", states)
	fmt.Printf("final position (%.2f, %.2f, %.2f) mode %s held %s contacts %+v\n",
		last.Position[0], last.Position[1], last.Position[2], last.Mode, last.Held, last.Contacts)
	_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
}
