package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/lrstanley/go-ytdlp"
)

// Default binary name looked up on PATH
const DefaultBinary = "yt-dlp"

// progressFrequency is how often go-ytdlp may report progress. The tracker
// applies the client-facing rate limit on top of it.
const progressFrequency = 100 * time.Millisecond

// CommandError is returned when yt-dlp exits unsuccessfully
type CommandError struct {
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// CLI drives the yt-dlp executable through go-ytdlp
type CLI struct {
	binary string
	logger hclog.Logger
}

// NewCLI creates an engine around the given yt-dlp binary
func NewCLI(binary string, logger hclog.Logger) *CLI {
	if binary == "" {
		binary = DefaultBinary
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &CLI{
		binary: binary,
		logger: logger,
	}
}

// Binary returns the executable this engine runs
func (c *CLI) Binary() string {
	return c.binary
}

func (c *CLI) command() *ytdlp.Command {
	return ytdlp.New().
		SetExecutable(c.binary).
		NoWarnings()
}

// ExtractFlat runs a flat, tolerant extraction
func (c *CLI) ExtractFlat(ctx context.Context, url string) (*FlatInfo, error) {
	dl := c.command().
		FlatPlaylist().
		IgnoreErrors().
		DumpSingleJSON()

	res, runErr := dl.Run(ctx, url)
	out := stdout(res)

	// with --ignore-errors yt-dlp may exit non-zero and still print usable JSON
	if out != "" {
		var info FlatInfo
		err := json.Unmarshal([]byte(out), &info)
		if err == nil {
			if runErr != nil {
				c.logger.Warn("flat extraction reported errors", "url", url, "error", c.wrapErr(ctx, runErr, res))
			}
			return &info, nil
		}
		if runErr == nil {
			return nil, fmt.Errorf("decode yt-dlp output: %w", err)
		}
	}
	if runErr != nil {
		return nil, c.wrapErr(ctx, runErr, res)
	}
	return nil, errors.New("yt-dlp printed no metadata")
}

// ExtractFull fetches the format list of one item
func (c *CLI) ExtractFull(ctx context.Context, url string) (*FullInfo, error) {
	dl := c.command().
		NoPlaylist().
		DumpSingleJSON()

	res, err := dl.Run(ctx, url)
	if err != nil {
		return nil, c.wrapErr(ctx, err, res)
	}

	var info FullInfo
	if err := json.Unmarshal([]byte(stdout(res)), &info); err != nil {
		return nil, fmt.Errorf("decode yt-dlp output: %w", err)
	}
	return &info, nil
}

// Download runs the transfer and feeds progress updates to opts.Progress.
// Updates arrive one at a time and all of them before Download returns.
func (c *CLI) Download(ctx context.Context, url string, opts DownloadOptions) error {
	dl := c.command().
		NoPlaylist().
		NoCheckCertificates()
	if opts.FormatSpec != "" {
		dl.Format(opts.FormatSpec)
	}
	if opts.MergeFormat != "" {
		dl.MergeOutputFormat(opts.MergeFormat)
	}
	if opts.OutputTemplate != "" {
		dl.Output(opts.OutputTemplate)
	}

	finished := false
	dl.ProgressFunc(progressFrequency, func(update ytdlp.ProgressUpdate) {
		p := fromUpdate(update)
		if p.Status == StatusFinished {
			finished = true
		}
		if opts.Progress != nil {
			opts.Progress(p)
		}
	})

	c.logger.Debug("starting download", "url", url, "format", opts.FormatSpec, "output", opts.OutputTemplate)
	res, err := dl.Run(ctx, url)
	if err != nil {
		return c.wrapErr(ctx, err, res)
	}

	if !finished && opts.Progress != nil {
		opts.Progress(Progress{Status: StatusFinished})
	}
	return nil
}

// fromUpdate maps a go-ytdlp progress update onto Progress
func fromUpdate(u ytdlp.ProgressUpdate) Progress {
	p := Progress{
		Status:          string(u.Status),
		DownloadedBytes: int64(u.DownloadedBytes),
		TotalBytes:      int64(u.TotalBytes),
	}
	if u.Info != nil {
		p.Title = deref(u.Info.Title)
		p.Thumbnail = deref(u.Info.Thumbnail)
	}
	return p
}

func (c *CLI) wrapErr(ctx context.Context, err error, res *ytdlp.Result) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var stderr string
	if res != nil {
		stderr = res.Stderr
	}
	return &CommandError{Stderr: lastErrorLine(stderr), Err: err}
}

func stdout(res *ytdlp.Result) string {
	if res == nil {
		return ""
	}
	return strings.TrimSpace(res.Stdout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// lastErrorLine picks the most useful line of yt-dlp's stderr
func lastErrorLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "ERROR:") {
			return strings.TrimSpace(lines[i])
		}
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
