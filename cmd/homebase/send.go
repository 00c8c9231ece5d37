package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"homebase/internal/blacklist"
	"homebase/internal/browser"
	"homebase/internal/dispatch"
	"homebase/internal/phone"
	"homebase/internal/sendjob"

	"github.com/spf13/cobra"
)

// drainInterval is how often the progress queue is polled while a job runs.
const drainInterval = 300 * time.Millisecond

func sendCmd() *cobra.Command {
	var (
		numbersFile string
		message     string
		messageFile string
		delay       float64
		batchSize   int
		batchPause  float64
		headless    bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a WhatsApp message to a batch of numbers",
		Long:  "Reads newline-separated raw numbers, normalizes them, drops blacklisted ones and sends the message through WhatsApp Web one number at a time. Press Ctrl+C to stop after the current number.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			body, err := messageBody(message, messageFile)
			if err != nil {
				return err
			}
			rawNumbers, err := numberLines(numbersFile)
			if err != nil {
				return err
			}

			black, err := blacklist.NewStore(cfg.WhatsApp.BlacklistPath).Load()
			if err != nil {
				return fmt.Errorf("load blacklist: %w", err)
			}

			pacing := sendjob.Pacing{
				Delay:      time.Duration(cfg.WhatsApp.DelaySeconds * float64(time.Second)),
				BatchSize:  cfg.WhatsApp.BatchSize,
				BatchPause: time.Duration(cfg.WhatsApp.BatchPauseSec * float64(time.Second)),
			}
			if cmd.Flags().Changed("delay") {
				pacing.Delay = time.Duration(delay * float64(time.Second))
			}
			if cmd.Flags().Changed("batch-size") {
				pacing.BatchSize = batchSize
			}
			if cmd.Flags().Changed("batch-pause") {
				pacing.BatchPause = time.Duration(batchPause * float64(time.Second))
			}
			if pacing.BatchSize < 1 {
				return fmt.Errorf("batch size must be >= 1")
			}

			job := sendjob.NewJob(rawNumbers, body, black, pacing)
			if len(job.Numbers) == 0 {
				return fmt.Errorf("no sendable numbers after normalization and blacklist")
			}
			dropped := len(rawNumbers) - len(job.Numbers)
			if dropped > 0 {
				logger.Info("numbers excluded", "dropped", dropped, "sendable", len(job.Numbers))
			}

			ctx, stopSignals := signalContext()
			defer stopSignals()

			sessions := browser.NewManager(browser.ManagerConfig{
				ProfileDir: cfg.WhatsApp.ProfileDir,
				Headless:   headless,
				Logger:     logger,
			})
			defer sessions.Close()

			// A session that cannot launch is fatal before the run starts;
			// no progress events are emitted for it.
			if _, err := sessions.Ensure(ctx); err != nil {
				var le *browser.LaunchError
				if errors.As(err, &le) {
					return fmt.Errorf("whatsapp session: %w (run 'homebase login' first)", err)
				}
				return err
			}

			selectors, err := browser.LoadSelectors(cfg.WhatsApp.SelectorsPath)
			if err != nil {
				return fmt.Errorf("load selectors: %w", err)
			}

			queue := sendjob.NewQueue()
			worker := sendjob.NewWorker(sendjob.WorkerConfig{
				Sender: dispatch.New(dispatch.Config{
					Sessions:  sessions,
					Selectors: selectors,
					Logger:    logger,
				}),
				Queue:  queue,
				Logger: logger,
			})

			done := make(chan struct{})
			go func() {
				defer close(done)
				worker.Run(ctx, job)
			}()

			summary := watchProgress(queue, done)
			buildNotifier(cfg).Notify(summary)
			fmt.Println(summary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&numbersFile, "numbers", "n", "", "file with one raw number per line, or '-' for stdin (required)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "message text (may contain \\n)")
	cmd.Flags().StringVar(&messageFile, "message-file", "", "read message text from a file")
	cmd.Flags().Float64Var(&delay, "delay", 0, "seconds between sends (default from config)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "sends per batch before the long pause (default from config)")
	cmd.Flags().Float64Var(&batchPause, "batch-pause", 0, "seconds to pause between batches (default from config)")
	cmd.Flags().BoolVar(&headless, "headless", false, "run the browser headless")
	_ = cmd.MarkFlagRequired("numbers")

	return cmd
}

// watchProgress drains the queue on a fixed timer until the worker finishes,
// printing each event, and returns the final run summary.
func watchProgress(queue *sendjob.Queue, done <-chan struct{}) string {
	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	summary := ""
	for {
		select {
		case <-ticker.C:
			for _, e := range queue.Drain() {
				printEvent(e, &summary)
			}
		case <-done:
			for _, e := range queue.Drain() {
				printEvent(e, &summary)
			}
			if summary == "" {
				summary = "send job ended without a terminal event"
			}
			return summary
		}
	}
}

func printEvent(e sendjob.Event, summary *string) {
	switch e.Kind {
	case sendjob.EventStarted:
		fmt.Printf("sending to %d numbers\n", e.Total)
	case sendjob.EventSent:
		fmt.Printf("  [%d] sent      %s\n", e.Index, e.Number)
	case sendjob.EventFailed:
		fmt.Printf("  [%d] FAILED    %s\n", e.Index, e.Number)
	case sendjob.EventStopped:
		*summary = fmt.Sprintf("send job stopped: %d sent, %d failed", e.Sent, e.Failed)
	case sendjob.EventDone:
		*summary = fmt.Sprintf("send job done: %d sent, %d failed", e.Sent, e.Failed)
	}
}

func messageBody(message, messageFile string) (string, error) {
	switch {
	case message != "" && messageFile != "":
		return "", fmt.Errorf("--message and --message-file are mutually exclusive")
	case messageFile != "":
		data, err := os.ReadFile(messageFile)
		if err != nil {
			return "", fmt.Errorf("read message file: %w", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	case message != "":
		// Shells pass \n literally; honor it as a line break.
		return strings.ReplaceAll(message, `\n`, "\n"), nil
	default:
		return "", fmt.Errorf("a message is required (--message or --message-file)")
	}
}

func numberLines(path string) ([]string, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open numbers file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read numbers: %w", err)
	}
	return lines, nil
}

func generateCmd() *cobra.Command {
	var (
		count   int
		country string
		outFile string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate random canonical numbers for a country",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := sendjob.Country(country)
			if c != sendjob.CountryAZ && c != sendjob.CountryTR {
				return fmt.Errorf("unknown country %q (az, tr)", country)
			}
			nums := sendjob.Generate(count, c)

			var sb strings.Builder
			for _, n := range nums {
				sb.WriteString(string(n))
				sb.WriteByte('\n')
			}
			if outFile == "" {
				fmt.Print(sb.String())
				return nil
			}
			if err := os.WriteFile(outFile, []byte(sb.String()), 0o644); err != nil {
				return fmt.Errorf("write numbers: %w", err)
			}
			logger.Info("numbers generated", "count", len(nums), "file", outFile)
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 100, "how many numbers to generate")
	cmd.Flags().StringVar(&country, "country", "az", "country prefix set (az, tr)")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "write to file instead of stdout")

	return cmd
}

func blacklistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blacklist",
		Short: "Manage the never-send number list",
	}

	store := func() *blacklist.Store {
		cfg := loadConfigOrDefaults()
		return blacklist.NewStore(cfg.WhatsApp.BlacklistPath)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print all blacklisted numbers",
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := store().Load()
			if err != nil {
				return err
			}
			for _, n := range set.Numbers() {
				fmt.Println(n)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add [number...]",
		Short: "Add numbers (raw form accepted, normalized before storing)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := store()
			set, err := st.Load()
			if err != nil {
				return err
			}
			for _, raw := range args {
				n, ok := phone.Normalize(raw)
				if !ok {
					return fmt.Errorf("cannot normalize %q", raw)
				}
				set.Add(n)
			}
			if err := st.Save(set); err != nil {
				return err
			}
			logger.Info("blacklist updated", "size", len(set))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove [number...]",
		Short: "Remove numbers from the blacklist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := store()
			set, err := st.Load()
			if err != nil {
				return err
			}
			for _, raw := range args {
				n, ok := phone.Normalize(raw)
				if !ok {
					return fmt.Errorf("cannot normalize %q", raw)
				}
				delete(set, n)
			}
			if err := st.Save(set); err != nil {
				return err
			}
			logger.Info("blacklist updated", "size", len(set))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Remove every blacklisted number",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := store().Reset(); err != nil {
				return err
			}
			logger.Info("blacklist cleared")
			return nil
		},
	})

	return cmd
}
