// Command survey-submit sends completed surveys to the relay.
//
//	survey-submit -relay http://localhost:3000 answers.json
//	survey-submit -relay http://localhost:3000 -replay
//
// Answers are read from the named files, or from stdin when none is given.
// Submissions the relay rejects go to the fallback; with -fallback queue they
// are kept in a SQLite file and sent again by -replay.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"

	"github.com/goccy/go-json"

	"github.com/mbolis/survey-relay/client"
	"github.com/mbolis/survey-relay/config"
	"github.com/mbolis/survey-relay/form"
	"github.com/mbolis/survey-relay/log"
	"github.com/mbolis/survey-relay/model"
	"github.com/mbolis/survey-relay/queue"
)

type options struct {
	relay    string
	fallback string
	altRelay string
	queueDB  string
	replay   bool
	debug    bool
}

func main() {
	err := config.LoadEnv()
	if err != nil {
		log.Fatal("main.env:", err)
	}

	opts := options{}
	flag.StringVar(&opts.relay, "relay", envOr("RELAY_URL", "http://localhost:3000"), "relay base URL")
	flag.StringVar(&opts.fallback, "fallback", "queue", "fallback when the relay fails: queue, endpoint or placeholder")
	flag.StringVar(&opts.altRelay, "alt-relay", os.Getenv("ALT_RELAY_URL"), "secondary relay base URL (endpoint fallback)")
	flag.StringVar(&opts.queueDB, "queue-db", envOr("QUEUE_DB", "pending.sqlite"), "path to the SQLite queue (queue fallback)")
	flag.BoolVar(&opts.replay, "replay", false, "resend queued submissions and exit")
	flag.BoolVar(&opts.debug, "debug", false, "log at DEBUG level")
	flag.Parse()

	if opts.debug {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var q *queue.Queue
	if opts.replay || opts.fallback == "queue" {
		q, err = queue.Open(opts.queueDB)
		if err != nil {
			log.Fatal("main.queue:", err)
		}
		defer q.Close()
	}

	var fallback client.Fallback
	switch opts.fallback {
	case "queue":
		fallback = q
	case "endpoint":
		if opts.altRelay == "" {
			log.Fatal("main.fallback: -alt-relay is required with -fallback endpoint")
		}
		fallback = client.Endpoint{URL: client.RelayURL(opts.altRelay)}
	case "placeholder":
		fallback = client.Placeholder{}
	default:
		log.Fatal("main.fallback: unknown fallback " + opts.fallback)
	}

	c := client.New(client.RelayURL(opts.relay), fallback)

	if opts.replay {
		_, err := q.Replay(ctx, c)
		if err != nil {
			log.Fatal("main.replay:", err)
		}
		return
	}

	inputs := flag.Args()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}
	failed := false
	for _, input := range inputs {
		err := submit(ctx, c, input)
		if err != nil {
			log.Error("main.submit("+input+"):", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

// submit plays one survey session: the file contents complete the form and
// the client submits them.
func submit(ctx context.Context, c *client.Client, input string) error {
	var r io.Reader = os.Stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	answers := model.Answers{}
	err := json.NewDecoder(r).Decode(&answers)
	if err != nil {
		return err
	}

	completion := form.NewCompletion()
	err = completion.Complete(answers)
	if err != nil {
		return err
	}

	result, err := c.Watch(ctx, completion)
	if err != nil {
		return err
	}
	log.Infof("%s: %s", input, result.Message)
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
