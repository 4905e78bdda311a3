package model

import "strings"

// Preset maps a UX quality choice to an engine argument list. Arguments are
// stored as discrete strings so they can be handed to the subprocess without
// any shell interpolation.
type Preset struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	EngineArgs  []string `yaml:"engine_args"`
}

// DefaultPresetID is used when a submitted preset id is unknown.
const DefaultPresetID = "recommended_best"

// BuiltinPresets returns the presets shipped with the app, best first.
func BuiltinPresets() []Preset {
	return []Preset{
		{
			ID:          "recommended_best",
			Name:        "Recommended (Best)",
			Description: "Best available video and audio, merged to MP4",
			EngineArgs:  []string{"-f", "bv*+ba/b", "--merge-output-format", "mp4"},
		},
		{
			ID:          "mp4_1080p",
			Name:        "1080p MP4",
			Description: "Up to 1080p, merged to MP4",
			EngineArgs:  []string{"-f", "bv*[height<=1080]+ba/b[height<=1080]", "--merge-output-format", "mp4"},
		},
		{
			ID:          "mp4_best",
			Name:        "Best MP4",
			Description: "Best MP4-native streams only",
			EngineArgs:  []string{"-f", "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]", "--merge-output-format", "mp4"},
		},
		{
			ID:          "audio_m4a",
			Name:        "Audio M4A",
			Description: "Audio only, M4A container",
			EngineArgs:  []string{"-f", "ba[ext=m4a]/ba", "-x", "--audio-format", "m4a"},
		},
		{
			ID:          "audio_mp3_320",
			Name:        "Audio MP3 320",
			Description: "Audio only, MP3 at 320K",
			EngineArgs:  []string{"-f", "ba", "-x", "--audio-format", "mp3", "--audio-quality", "320K"},
		},
	}
}

// PresetByID looks up a builtin preset, falling back to the recommended one.
func PresetByID(id string) Preset {
	presets := BuiltinPresets()
	for _, p := range presets {
		if p.ID == id {
			return p
		}
	}
	return presets[0]
}

// Toggles are per-job feature switches applied on top of any preset.
type Toggles struct {
	SponsorBlock           bool     `yaml:"sponsorblock"`
	SponsorBlockCategories []string `yaml:"sponsorblock_categories"`
	// SponsorBlockMode is "remove" or "mark"
	SponsorBlockMode string `yaml:"sponsorblock_mode"`

	Subtitles         bool   `yaml:"subtitles"`
	SubtitleLanguages string `yaml:"subtitle_languages"`
	SubtitlesEmbed    bool   `yaml:"subtitles_embed"`
	SubtitlesAuto     bool   `yaml:"subtitles_auto"`

	EmbedMetadata  bool `yaml:"embed_metadata"`
	EmbedThumbnail bool `yaml:"embed_thumbnail"`
}

// DefaultToggles enables metadata and thumbnail embedding and leaves
// everything else off.
func DefaultToggles() Toggles {
	return Toggles{
		SubtitleLanguages: "en",
		SponsorBlockMode:  "remove",
		EmbedMetadata:     true,
		EmbedThumbnail:    true,
	}
}

// Args renders the toggles as engine arguments.
func (t Toggles) Args() []string {
	var args []string
	if t.SponsorBlock {
		categories := "default"
		if len(t.SponsorBlockCategories) > 0 {
			categories = strings.Join(t.SponsorBlockCategories, ",")
		}
		if t.SponsorBlockMode == "mark" {
			args = append(args, "--sponsorblock-mark", categories)
		} else {
			args = append(args, "--sponsorblock-remove", categories)
		}
	}
	if t.Subtitles {
		langs := t.SubtitleLanguages
		if langs == "" {
			langs = "en"
		}
		args = append(args, "--write-subs", "--sub-langs", langs)
		if t.SubtitlesAuto {
			args = append(args, "--write-auto-subs")
		}
		if t.SubtitlesEmbed {
			args = append(args, "--embed-subs")
		}
	}
	if t.EmbedMetadata {
		args = append(args, "--embed-metadata")
	}
	if t.EmbedThumbnail {
		args = append(args, "--embed-thumbnail")
	}
	return args
}
