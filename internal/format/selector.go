// Package format picks one stream variant per item for a requested
// vertical resolution.
package format

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ytget/yt-downloader-web/internal/model"
)

// DefaultTarget is used when the requested resolution is not a number
const DefaultTarget = 1080

// FallbackVideo is the engine's own "best video" selector, used when Select finds nothing
const FallbackVideo = "bestvideo"

// Select returns the format id closest to targetHeight.
// Priority: exact match (last one listed) -> closest above -> closest below.
func Select(variants []model.StreamVariant, targetHeight int) (string, bool) {
	videos := make([]model.StreamVariant, 0, len(variants))
	for _, v := range variants {
		if v.HasVideo && v.Height != nil {
			videos = append(videos, v)
		}
	}
	if len(videos) == 0 {
		return "", false
	}

	// stable so equal heights keep source order; later entries are the better encodes
	sort.SliceStable(videos, func(i, j int) bool {
		return *videos[i].Height < *videos[j].Height
	})

	exact := -1
	for i, v := range videos {
		if *v.Height == targetHeight {
			exact = i
		}
	}
	if exact >= 0 {
		return videos[exact].FormatID, true
	}

	for _, v := range videos {
		if *v.Height > targetHeight {
			return v.FormatID, true
		}
	}

	// everything is below target; the list is sorted so the last one is the best
	return videos[len(videos)-1].FormatID, true
}

// ParseTarget converts a resolution hint that may arrive as a string or a
// JSON number into a height. Anything else yields DefaultTarget.
func ParseTarget(v any) int {
	switch t := v.(type) {
	case int:
		return positiveOr(t)
	case int64:
		return positiveOr(int(t))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return DefaultTarget
		}
		return positiveOr(int(t))
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(strings.ToLower(t)), "p")
		n, err := strconv.Atoi(s)
		if err != nil {
			return DefaultTarget
		}
		return positiveOr(n)
	}
	return DefaultTarget
}

func positiveOr(n int) int {
	if n <= 0 {
		return DefaultTarget
	}
	return n
}
