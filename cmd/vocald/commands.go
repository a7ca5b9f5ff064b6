package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/poiesic/vocald"
	"github.com/poiesic/vocald/core"
	"github.com/poiesic/vocald/ingestion"
	"github.com/urfave/cli/v2"
)

var errConfirmationRequired = errors.New("refusing to delete everything without --yes")

func initCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.RecordingsFolder == "" {
		return fmt.Errorf("--folder is required")
	}
	if callLog := c.String("call-log"); callLog != "" {
		cfg.CallLogPath = callLog
	}

	path, err := configPath(c)
	if err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Config written to %s\n", path)

	if c.Bool("analyse-existing") {
		return nil
	}

	engine, err := vocald.Open(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer engine.Close()

	found, marked, err := engine.Onboard(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Found %d existing recording(s); %d marked as seen. Only new recordings will be analysed.\n", found, marked)
	return nil
}

// cancelOnInterrupt cancels the engine's run on the first interrupt.
func cancelOnInterrupt(c *cli.Context, engine *vocald.Engine, run *ingestion.Run) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigs:
			if engine.Cancel() {
				fmt.Fprintln(c.App.ErrWriter, warnStyle.Render("\nCancelling after the current recording..."))
			}
		case <-run.Done():
		}
	}()
	return func() { signal.Stop(sigs) }
}

func scanCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	run, err := engine.Scan(c.Context)
	if err != nil {
		return err
	}
	stop := cancelOnInterrupt(c, engine, run)
	defer stop()

	summary, err := followRun(c.App.ErrWriter, run, c.Bool("plain"))
	printSummary(c.App.Writer, summary)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	return nil
}

func analyseCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one file, got %d", c.NArg())
	}
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	run, err := engine.Analyse(c.Context, c.Args().First())
	if err != nil {
		return err
	}

	var recordingID core.ID
	for ev := range run.Events() {
		switch ev.Type {
		case ingestion.EventStep:
			fmt.Fprintln(c.App.ErrWriter, dimStyle.Render(ev.Step+"..."))
		case ingestion.EventFileDone, ingestion.EventFileSkipped:
			recordingID = ev.RecordingID
		case ingestion.EventFileFailed:
			recordingID = ev.RecordingID
			fmt.Fprintf(c.App.ErrWriter, "%s %v\n", errorStyle.Render("analysis failed:"), ev.Err)
		}
	}
	if _, err := run.Wait(); err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	if recordingID == 0 {
		return nil
	}

	detail, err := engine.Recordings().GetRecordingDetail(c.Context, recordingID)
	if err != nil {
		return err
	}
	printDetail(c.App.Writer, detail)
	return nil
}

func watchCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(c.App.ErrWriter, "Watching %s (Ctrl+C to stop)\n", engine.Config().RecordingsFolder)
	err = engine.Watch(ctx, func(run *ingestion.Run) {
		summary, err := followRun(c.App.ErrWriter, run, true)
		printSummary(c.App.Writer, summary)
		if err != nil {
			fmt.Fprintf(c.App.ErrWriter, "%s %v\n", errorStyle.Render("scan failed:"), err)
		}
	})
	if err != nil {
		return err
	}
	return nil
}

func listCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	recordings, err := engine.Recordings().SearchRecordings(c.Context, c.String("search"))
	if err != nil {
		return err
	}
	printRecordings(c.App.Writer, recordings)
	return nil
}

func parseID(s string) (core.ID, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid recording id %q", s)
	}
	return core.ID(id), nil
}

func showCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected a recording id")
	}
	id, err := parseID(c.Args().First())
	if err != nil {
		return err
	}
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	detail, err := engine.Recordings().GetRecordingDetail(c.Context, id)
	if err != nil {
		return err
	}
	printDetail(c.App.Writer, detail)
	return nil
}

func renameCommand(c *cli.Context) error {
	if c.NArg() != 3 {
		return fmt.Errorf("expected <recording-id> <speaker-index> <name>")
	}
	id, err := parseID(c.Args().Get(0))
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(c.Args().Get(1))
	if err != nil || index < 0 {
		return fmt.Errorf("invalid speaker index %q", c.Args().Get(1))
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.Recordings().UpdateSpeakerName(c.Context, id, index, c.Args().Get(2)); err != nil {
		return err
	}
	detail, err := engine.Recordings().GetRecordingDetail(c.Context, id)
	if err != nil {
		return err
	}
	printDetail(c.App.Writer, detail)
	return nil
}

func profilesCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	profiles, err := engine.Profiles().GetVoiceProfiles(c.Context)
	if err != nil {
		return err
	}
	printProfiles(c.App.Writer, profiles)
	return nil
}

func statsCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	stats, err := engine.Recordings().GetDBStats(c.Context)
	if err != nil {
		return err
	}
	printStats(c.App.Writer, stats)
	if folder := engine.Config().RecordingsFolder; folder != "" {
		fmt.Fprintf(c.App.Writer, "  Audio in folder: %d\n", engine.Scanner().CountAllAudioFiles(folder))
	}
	return nil
}

func clearCommand(c *cli.Context) error {
	if !c.Bool("yes") {
		return errConfirmationRequired
	}
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.ClearAll(c.Context); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "All recordings, voices and processed-file records deleted.")
	return nil
}
