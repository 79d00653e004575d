package level

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
)

// ReopenPolicy decides what happens when an opening marker appears for a
// region that already collected text.
type ReopenPolicy int

const (
	// ReopenAppend keeps earlier text and continues collecting after it.
	ReopenAppend ReopenPolicy = iota
	// ReopenReset discards earlier text for the region.
	ReopenReset
)

// Options tunes parsing.
type Options struct {
	Reopen ReopenPolicy
	// Strict makes ParseWithOptions report unterminated and absent regions.
	Strict bool
}

// MalformedRegionError describes a region that is absent or never closed.
type MalformedRegionError struct {
	Region Region
	Reason string
}

func (e *MalformedRegionError) Error() string {
	return fmt.Sprintf("region %s: %s", e.Region, e.Reason)
}

const (
	reasonUnterminated = "unterminated"
	reasonMissing      = "missing"
)

// Parse extracts the regions of raw level text. Malformed input degrades to
// whatever text was collected; Parse never fails.
func Parse(text string) Level {
	lvl, _ := ParseWithOptions(text, Options{})
	return lvl
}

// ParseStrict parses like Parse but also reports every absent or
// unterminated region as a *MalformedRegionError. The returned Level is the
// same one Parse would produce.
func ParseStrict(text string) (Level, error) {
	return ParseWithOptions(text, Options{Strict: true})
}

// ParseWithOptions parses raw level text. The error is always nil unless
// opts.Strict is set.
func ParseWithOptions(text string, opts Options) (Level, error) {
	p := newParser(opts)

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), len(text)+1)
	for scanner.Scan() {
		p.feed(scanner.Text())
	}

	return p.finish()
}

type parser struct {
	opts    Options
	current Region
	buffers map[Region][]string
	opened  map[Region]bool
	closed  map[Region]bool
}

func newParser(opts Options) *parser {
	return &parser{
		opts:    opts,
		buffers: make(map[Region][]string, len(Regions)),
		opened:  make(map[Region]bool, len(Regions)),
		closed:  make(map[Region]bool, len(Regions)),
	}
}

func (p *parser) feed(line string) {
	marker := strings.ToUpper(strings.TrimSpace(line))

	if region, ok := openingRegion(marker); ok {
		if p.opts.Reopen == ReopenReset {
			p.buffers[region] = nil
		}
		p.current = region
		p.opened[region] = true
		p.closed[region] = false
		return
	}

	if p.current != "" && isClosing(marker, p.current) {
		p.closed[p.current] = true
		p.current = ""
		return
	}

	if p.current == "" {
		return
	}
	p.buffers[p.current] = append(p.buffers[p.current], strings.TrimSuffix(line, "\r"))
}

func (p *parser) finish() (Level, error) {
	var lvl Level
	var errs []error
	for _, region := range Regions {
		lvl.set(region, strings.TrimSpace(strings.Join(p.buffers[region], "\n")))

		if !p.opts.Strict {
			continue
		}
		switch {
		case !p.opened[region]:
			errs = append(errs, &MalformedRegionError{Region: region, Reason: reasonMissing})
		case !p.closed[region]:
			errs = append(errs, &MalformedRegionError{Region: region, Reason: reasonUnterminated})
		}
	}
	return lvl, errors.Join(errs...)
}

func openingRegion(marker string) (Region, bool) {
	for _, region := range Regions {
		if marker == "<"+string(region)+">" {
			return region, true
		}
	}
	return "", false
}

func isClosing(marker string, region Region) bool {
	return marker == "</"+string(region)+">" || marker == `<\`+string(region)+">"
}
