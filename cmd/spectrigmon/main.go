package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/robotalks/spectrig/pkg/l1/comm/mqtt"
	"github.com/robotalks/spectrig/pkg/l1/msgs"
)

var (
	mqttURL = mqtt.DefaultBrokerURL
	verbose bool
)

func init() {
	if val := os.Getenv("SPECTRIG_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.BoolVar(&verbose, "verbose", verbose, "Print every peak of pulse events.")
}

func format(msg msgs.SerializableMessage) string {
	if ev, ok := msg.(*msgs.PulseEvent); ok && !verbose {
		return fmt.Sprintf("peaks=%d missed=%d", len(ev.Peaks), ev.Missed)
	}
	return msg.Serializable().String()
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/meta") {
			if len(payload) == 0 {
				log.Printf("%s: gone", topic)
			} else {
				log.Printf("%s: %s", topic, string(payload))
			}
			return
		}
		typed, err := msgs.DecodeTyped(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		msg, err := typed.Decode()
		if err != nil {
			log.Printf("%s: decode error: (type_id=%x) %v", topic, typed.TypeId, err)
			return
		}
		log.Printf("%s: #%d [%s] %s", topic, typed.Sequence, msgs.Name(msg),
			format(msg.(msgs.SerializableMessage)))
	}))
	token := q.Connect()
	if token.Wait(); token.Error() != nil {
		log.Fatalln(token.Error())
	}
	defer q.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh
}
