package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/dmarc0001/busmobile/config"
	"github.com/dmarc0001/busmobile/module/tracker/geo"
)

// tpvMessage mirrors the gpsd TPV report the tracker decodes.
type tpvMessage struct {
	Class string  `json:"class"`
	Mode  int     `json:"mode"`
	Time  string  `json:"time"`
	*tpvFix
}

type tpvFix struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Alt   float64 `json:"alt"`
	Speed float64 `json:"speed"`
	Track float64 `json:"track"`
}

// reports without lock before the simulated receiver gets a fix
const acquireReports = 3

func bearing(lat1, lon1, lat2, lon2 float64) float64 {
	p1, p2 := lat1*math.Pi/180, lat2*math.Pi/180
	dl := (lon2 - lon1) * math.Pi / 180
	y := math.Sin(dl) * math.Cos(p2)
	x := math.Cos(p1)*math.Sin(p2) - math.Sin(p1)*math.Cos(p2)*math.Cos(dl)
	return math.Mod(math.Atan2(y, x)*180/math.Pi+360, 360)
}

func parseArgs() (interval time.Duration, coords [4]float64, speed float64) {
	if len(os.Args) < 7 {
		fmt.Fprintf(os.Stderr, "usage: %s <interval_seconds> <from_lat> <from_lon> <to_lat> <to_lon> <speed_mps>\n", os.Args[0])
		os.Exit(1)
	}

	intervalSec, err := strconv.ParseFloat(os.Args[1], 64)
	if err != nil || intervalSec <= 0 {
		fmt.Fprintf(os.Stderr, "error: interval must be a positive number\n")
		os.Exit(1)
	}
	for i := range coords {
		coords[i], err = strconv.ParseFloat(os.Args[2+i], 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid coordinate %q\n", os.Args[2+i])
			os.Exit(1)
		}
	}
	speed, err = strconv.ParseFloat(os.Args[6], 64)
	if err != nil || speed <= 0 {
		fmt.Fprintf(os.Stderr, "error: speed must be a positive number\n")
		os.Exit(1)
	}
	return time.Duration(intervalSec * float64(time.Second)), coords, speed
}

func main() {
	interval, c, speed := parseArgs()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg.MQTTClientID = "busmobile-simulator"

	client, err := config.NewMQTT(cfg)
	if err != nil {
		log.Fatalf("mqtt: %v", err)
	}
	defer client.Disconnect(250)

	fromLat, fromLon, toLat, toLon := c[0], c[1], c[2], c[3]
	total := geo.Distance(fromLat, fromLon, toLat, toLon)
	step := speed * interval.Seconds()
	log.Printf("connected to %s, driving %.0fm at %.1fm/s, report every %s", cfg.MQTTBroker, total, speed, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	travelled := 0.0
	sent := 0
	for range ticker.C {
		msg := tpvMessage{Class: "TPV", Mode: 1, Time: time.Now().UTC().Format(time.RFC3339Nano)}

		if sent >= acquireReports {
			frac := 1.0
			if total > 0 {
				frac = math.Min(travelled/total, 1)
			}
			msg.Mode = 3
			msg.tpvFix = &tpvFix{
				Lat:   fromLat + (toLat-fromLat)*frac,
				Lon:   fromLon + (toLon-fromLon)*frac,
				Alt:   35,
				Speed: speed,
				Track: bearing(fromLat, fromLon, toLat, toLon),
			}

			travelled += step
			if travelled > total {
				// turn around at the end of the line
				fromLat, fromLon, toLat, toLon = toLat, toLon, fromLat, fromLon
				travelled = 0
			}
		}
		sent++

		payload, _ := json.Marshal(msg)
		token := client.Publish(cfg.MQTTTopic, 1, false, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("publish: %v", err)
			continue
		}

		log.Printf("published to %s: %s", cfg.MQTTTopic, payload)
	}
}
