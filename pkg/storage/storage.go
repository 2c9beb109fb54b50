// Package storage persists settings slots using LittleFS.
// It handles atomic writes, version checking, and cleanup of temporary files.
package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/tuffrabit/tinygo-flcm1/pkg/config"

	"tinygo.org/x/tinyfs"
	"tinygo.org/x/tinyfs/littlefs"
)

const (
	rootDir    = "/flcm1"
	slotsDir   = "/flcm1/slots"
	formatFile = "/flcm1/format.bin"
	tempSuffix = ".tmp"
	slotSuffix = ".bin"

	// Each slot: record + ~32 bytes LittleFS overhead.
	slotFootprint = config.SettingsSize + 32
)

var (
	ErrSlotEmpty       = errors.New("slot empty")
	ErrInvalidSlot     = errors.New("invalid slot")
	ErrInvalidData     = errors.New("invalid slot data")
	ErrVersionMismatch = errors.New("settings version mismatch")
)

// Manager handles slot persistence using LittleFS.
type Manager struct {
	fs       *littlefs.LFS
	blockDev tinyfs.BlockDevice
	mounted  bool
	logger   *slog.Logger
}

// Stats provides information about storage usage.
type Stats struct {
	TotalSpace int64
	UsedSpace  int64
	FreeSpace  int64
	SlotCount  int
}

// New mounts the filesystem on blockDev and performs boot-time cleanup.
// If format is true and mount fails, the device is formatted first.
// A format version different from config.CurrentVersion wipes every slot.
func New(blockDev tinyfs.BlockDevice, format bool, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "storage")

	lfs := littlefs.New(blockDev)
	lfs.Configure(&littlefs.Config{
		CacheSize:     512,
		LookaheadSize: 128,
	})

	if err := lfs.Mount(); err != nil {
		if !format {
			return nil, err
		}
		logger.Warn("mount failed, formatting", "err", err)
		if err := lfs.Format(); err != nil {
			return nil, err
		}
		if err := lfs.Mount(); err != nil {
			return nil, err
		}
	}

	m := &Manager{
		fs:       lfs,
		blockDev: blockDev,
		mounted:  true,
		logger:   logger,
	}

	if err := m.bootCleanup(); err != nil {
		logger.Warn("boot cleanup failed", "err", err)
	}

	needsWipe, err := m.checkVersion()
	if err != nil {
		logger.Warn("format version unreadable", "err", err)
	}
	if needsWipe {
		logger.Info("format version changed, wiping slots")
		if err := m.wipeAll(); err != nil {
			return nil, err
		}
	}
	if err := m.writeVersion(); err != nil {
		return nil, err
	}

	return m, nil
}

// Close unmounts the filesystem.
func (m *Manager) Close() error {
	if m.mounted {
		m.mounted = false
		return m.fs.Unmount()
	}
	return nil
}

// bootCleanup removes temporary files left over from interrupted writes.
func (m *Manager) bootCleanup() error {
	for _, dir := range []string{rootDir, slotsDir} {
		entries, err := m.readDir(dir)
		if err != nil {
			if isNotExist(err) {
				continue
			}
			return err
		}
		for _, entry := range entries {
			if name := entry.Name(); strings.HasSuffix(name, tempSuffix) {
				m.logger.Debug("removing stale temp file", "dir", dir, "name", name)
				m.fs.Remove(path.Join(dir, name))
			}
		}
	}
	return nil
}

func (m *Manager) readDir(dirPath string) ([]os.FileInfo, error) {
	f, err := m.fs.Open(dirPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !f.IsDir() {
		return nil, errors.New("not a directory")
	}

	return f.Readdir(-1)
}

// checkVersion reports whether the stored format version differs from
// config.CurrentVersion. A missing format file is a first boot.
func (m *Manager) checkVersion() (bool, error) {
	f, err := m.fs.Open(formatFile)
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	buf := make([]byte, 2)
	if _, err := io.ReadFull(f, buf); err != nil {
		return true, err
	}
	return binary.LittleEndian.Uint16(buf) != config.CurrentVersion, nil
}

func (m *Manager) writeVersion() error {
	if err := m.ensureDirs(); err != nil {
		return err
	}
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, config.CurrentVersion)
	return m.atomicWrite(formatFile, buf)
}

// wipeAll removes every slot file.
func (m *Manager) wipeAll() error {
	slots, err := m.ListSlots()
	if err != nil {
		return err
	}
	for _, slot := range slots {
		if err := m.DeleteSlot(slot); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) ensureDirs() error {
	if err := m.fs.Mkdir(rootDir, 0755); err != nil && !isExist(err) {
		return err
	}
	if err := m.fs.Mkdir(slotsDir, 0755); err != nil && !isExist(err) {
		return err
	}
	return nil
}

// isExist checks if an error is "already exists".
// LittleFS errors don't always match os.IsExist, so we check the message too.
func isExist(err error) bool {
	if err == nil {
		return false
	}
	if os.IsExist(err) {
		return true
	}
	return strings.Contains(err.Error(), "already exists")
}

func isNotExist(err error) bool {
	if err == nil {
		return false
	}
	if os.IsNotExist(err) {
		return true
	}
	return strings.Contains(err.Error(), "No directory entry")
}

func validSlot(slot uint8) error {
	if slot >= config.SlotCount {
		return fmt.Errorf("slot %d: %w", slot, ErrInvalidSlot)
	}
	return nil
}

// LoadSlot reads the record stored in slot into s.
func (m *Manager) LoadSlot(slot uint8, s *config.DeviceSettings) error {
	if err := validSlot(slot); err != nil {
		return err
	}

	f, err := m.fs.Open(m.slotPath(slot))
	if err != nil {
		if isNotExist(err) {
			return ErrSlotEmpty
		}
		return err
	}
	defer f.Close()

	buf := make([]byte, config.SettingsSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && n != config.SettingsSize {
		return ErrInvalidData
	}

	var loaded config.DeviceSettings
	if err := loaded.UnmarshalBinary(buf); err != nil {
		return err
	}
	if loaded.Version != config.CurrentVersion {
		return ErrVersionMismatch
	}
	*s = loaded
	return nil
}

// SaveSlot writes s to slot atomically, stamping the current version.
func (m *Manager) SaveSlot(slot uint8, s *config.DeviceSettings) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	if err := m.ensureDirs(); err != nil {
		return err
	}

	s.Version = config.CurrentVersion

	data, err := s.MarshalBinary()
	if err != nil {
		return err
	}

	if err := m.atomicWrite(m.slotPath(slot), data); err != nil {
		m.logger.Error("slot write failed", "slot", slot, "err", err)
		return err
	}
	m.logger.Debug("slot written", "slot", slot, "bytes", len(data))
	return nil
}

// DeleteSlot removes a slot. Removing an empty slot is not an error.
func (m *Manager) DeleteSlot(slot uint8) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	if err := m.fs.Remove(m.slotPath(slot)); err != nil && !isNotExist(err) {
		return err
	}
	return nil
}

// SlotExists checks if slot holds a record.
func (m *Manager) SlotExists(slot uint8) bool {
	f, err := m.fs.Open(m.slotPath(slot))
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// ListSlots returns the occupied slots.
func (m *Manager) ListSlots() ([]uint8, error) {
	entries, err := m.readDir(slotsDir)
	if err != nil {
		if isNotExist(err) {
			return []uint8{}, nil
		}
		return nil, err
	}

	slots := []uint8{}
	for _, entry := range entries {
		name := entry.Name()
		// Parse "N.bin" format
		if !strings.HasSuffix(name, slotSuffix) {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSuffix(name, slotSuffix), 10, 8)
		if err != nil || n >= config.SlotCount {
			continue
		}
		slots = append(slots, uint8(n))
	}

	return slots, nil
}

// GetStats returns storage statistics.
// LittleFS has no free space call, so usage is estimated from the slot count.
func (m *Manager) GetStats() (*Stats, error) {
	slots, err := m.ListSlots()
	if err != nil {
		return nil, err
	}

	used := int64(len(slots)*slotFootprint + 100)
	total := m.blockDev.Size()

	return &Stats{
		TotalSpace: total,
		UsedSpace:  used,
		FreeSpace:  total - used,
		SlotCount:  len(slots),
	}, nil
}

func (m *Manager) slotPath(slot uint8) string {
	return path.Join(slotsDir, strconv.Itoa(int(slot))+slotSuffix)
}

// atomicWrite writes data to a temporary file, syncs it, then renames.
// The original file is never in a partially written state.
func (m *Manager) atomicWrite(filepath string, data []byte) error {
	tempPath := filepath + tempSuffix

	m.fs.Remove(tempPath)

	f, err := m.fs.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		m.fs.Remove(tempPath)
		return err
	}

	if syncer, ok := f.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			f.Close()
			m.fs.Remove(tempPath)
			return err
		}
	}

	if err := f.Close(); err != nil {
		m.fs.Remove(tempPath)
		return err
	}

	// LittleFS rename doesn't replace
	m.fs.Remove(filepath)

	if err := m.fs.Rename(tempPath, filepath); err != nil {
		m.fs.Remove(tempPath)
		return err
	}

	return nil
}

// ForceWipe erases every slot (factory reset).
func (m *Manager) ForceWipe() error {
	m.logger.Info("wiping all slots")
	return m.wipeAll()
}
