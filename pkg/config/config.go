// Package config holds the build-time parameters of a PSI instance and the
// loader that reads the configuration-channel object list out of an ini
// file, mirroring an EDS-as-ini parsing style.
package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Defaults for the timeout/sizing knobs left as build parameters rather
// than wire-negotiated values.
const (
	DefaultConfChanNumObjects    = 64
	DefaultCcTxTimeoutCycles     = 5
	DefaultSsdoTxTimeoutCycles   = 15
	DefaultLogTxTimeoutCycles    = 15
	DefaultCycleTimeMinUs        = 400
	DefaultCycleTimeMaxUs        = 65000
	DefaultCycleTimeThresholdUs  = 50
	DefaultCycleTimeTimeoutUs    = 100
	DefaultConsecutiveTimeDivider = 1
	DefaultSsdoChannelCount      = 1
	DefaultLogbookChannelCount   = 1
	DefaultSsdoPayloadMax        = 255
)

// Config is the full set of build-time parameters threaded through the
// framework composition root (pkg/framework).
type Config struct {
	ConfChanNumObjects    int
	CcTxTimeoutCycles     uint32
	SsdoTxTimeoutCycles   uint32
	LogTxTimeoutCycles    uint32
	CycleTimeMinUs        uint32
	CycleTimeMaxUs        uint32
	CycleTimeThresholdUs  uint32
	CycleTimeTimeoutUs    uint32
	ConsecutiveTimeDivider uint32
	SsdoChannelCount      int
	LogbookChannelCount   int
	SsdoPayloadMax        int
}

// Default returns the out-of-the-box build configuration.
func Default() *Config {
	return &Config{
		ConfChanNumObjects:    DefaultConfChanNumObjects,
		CcTxTimeoutCycles:     DefaultCcTxTimeoutCycles,
		SsdoTxTimeoutCycles:   DefaultSsdoTxTimeoutCycles,
		LogTxTimeoutCycles:    DefaultLogTxTimeoutCycles,
		CycleTimeMinUs:        DefaultCycleTimeMinUs,
		CycleTimeMaxUs:        DefaultCycleTimeMaxUs,
		CycleTimeThresholdUs:  DefaultCycleTimeThresholdUs,
		CycleTimeTimeoutUs:    DefaultCycleTimeTimeoutUs,
		ConsecutiveTimeDivider: DefaultConsecutiveTimeDivider,
		SsdoChannelCount:      DefaultSsdoChannelCount,
		LogbookChannelCount:   DefaultLogbookChannelCount,
		SsdoPayloadMax:        DefaultSsdoPayloadMax,
	}
}

// ObjectDef is one static entry of the configuration-channel object list,
// as declared ahead-of-time in the build's ini file.
type ObjectDef struct {
	Index    uint16
	Subindex uint8
	Size     uint8
}

// LoadObjectList reads the static CC object list from an ini file. Each
// section name is "Object<index-hex>sub<subindex-hex>", mirroring the EDS
// section-naming convention an EDS-as-ini parser would use.
func LoadObjectList(path string) ([]ObjectDef, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: load ini %q: %w", path, err)
	}
	var objects []ObjectDef
	for _, section := range file.Sections() {
		if !section.HasKey("Index") || !section.HasKey("SubIndex") || !section.HasKey("Size") {
			continue
		}
		index, err := section.Key("Index").Uint()
		if err != nil {
			return nil, fmt.Errorf("config: section %s: bad Index: %w", section.Name(), err)
		}
		sub, err := section.Key("SubIndex").Uint()
		if err != nil {
			return nil, fmt.Errorf("config: section %s: bad SubIndex: %w", section.Name(), err)
		}
		size, err := section.Key("Size").Uint()
		if err != nil {
			return nil, fmt.Errorf("config: section %s: bad Size: %w", section.Name(), err)
		}
		switch size {
		case 1, 2, 4, 8:
		default:
			return nil, fmt.Errorf("config: section %s: size %d not in {1,2,4,8}", section.Name(), size)
		}
		objects = append(objects, ObjectDef{
			Index:    uint16(index),
			Subindex: uint8(sub),
			Size:     uint8(size),
		})
	}
	return objects, nil
}
