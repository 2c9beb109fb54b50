package storage

import (
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/tuffrabit/tinygo-flcm1/pkg/config"

	"tinygo.org/x/tinyfs"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStorage(t testing.TB) (*Manager, *tinyfs.MemBlockDevice) {
	// 256 byte page size, 4096 byte block size, 64 blocks = 256KB
	blockDev := tinyfs.NewMemoryDevice(256, 4096, 64)

	mgr, err := New(blockDev, true, testLogger())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	return mgr, blockDev
}

func TestSlotSaveLoad(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	original := config.Defaults()
	original.CANSpeed = 2
	original.HWFilterExtended[5] = true
	original.HWMaskFilter[7] = 0x18DAF110
	original.SoftwareFilters[1] = config.SoftwareFilter{CANID: 0x7E8, StartByte: 3, StartBit: 7, EndByte: 4, EndBit: 0, On: true}
	original.Comparators[2] = config.Comparator{Threshold: 1500, SoftwareFilter: 1, On: true}

	for slot := uint8(0); slot < config.SlotCount; slot++ {
		if err := mgr.SaveSlot(slot, &original); err != nil {
			t.Fatalf("SaveSlot(%d) failed: %v", slot, err)
		}

		var loaded config.DeviceSettings
		if err := mgr.LoadSlot(slot, &loaded); err != nil {
			t.Fatalf("LoadSlot(%d) failed: %v", slot, err)
		}
		if loaded != original {
			t.Errorf("slot %d: expected %+v, got %+v", slot, original, loaded)
		}
	}
}

func TestSlotSaveSetsVersion(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	s := config.Defaults()
	s.Version = 0
	if err := mgr.SaveSlot(0, &s); err != nil {
		t.Fatalf("SaveSlot failed: %v", err)
	}

	var loaded config.DeviceSettings
	if err := mgr.LoadSlot(0, &loaded); err != nil {
		t.Fatalf("LoadSlot failed: %v", err)
	}
	if loaded.Version != config.CurrentVersion {
		t.Errorf("Version: expected %d, got %d", config.CurrentVersion, loaded.Version)
	}
}

func TestSlotEmpty(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	var s config.DeviceSettings
	if err := mgr.LoadSlot(5, &s); err != ErrSlotEmpty {
		t.Errorf("Expected ErrSlotEmpty, got %v", err)
	}
}

func TestInvalidSlot(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	s := config.Defaults()
	if err := mgr.SaveSlot(config.SlotCount, &s); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("SaveSlot: expected ErrInvalidSlot, got %v", err)
	}
	if err := mgr.LoadSlot(config.SlotCount, &s); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("LoadSlot: expected ErrInvalidSlot, got %v", err)
	}
	if err := mgr.DeleteSlot(200); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("DeleteSlot: expected ErrInvalidSlot, got %v", err)
	}
}

func TestListSlots(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	want := []uint8{0, 3, 7, config.TempSlot}
	for _, slot := range want {
		s := config.Defaults()
		if err := mgr.SaveSlot(slot, &s); err != nil {
			t.Fatalf("SaveSlot %d failed: %v", slot, err)
		}
	}

	slots, err := mgr.ListSlots()
	if err != nil {
		t.Fatalf("ListSlots failed: %v", err)
	}
	if len(slots) != len(want) {
		t.Errorf("Expected %d slots, got %d", len(want), len(slots))
	}

	present := make(map[uint8]bool)
	for _, s := range slots {
		present[s] = true
	}
	for _, slot := range want {
		if !present[slot] {
			t.Errorf("Expected slot %d in list", slot)
		}
	}
}

func TestDeleteSlot(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	s := config.Defaults()
	mgr.SaveSlot(1, &s)

	if !mgr.SlotExists(1) {
		t.Error("Slot should exist before deletion")
	}
	if err := mgr.DeleteSlot(1); err != nil {
		t.Fatalf("DeleteSlot failed: %v", err)
	}
	if mgr.SlotExists(1) {
		t.Error("Slot should not exist after deletion")
	}
	if err := mgr.DeleteSlot(1); err != nil {
		t.Errorf("Deleting an empty slot: expected nil, got %v", err)
	}

	slots, _ := mgr.ListSlots()
	if len(slots) != 0 {
		t.Errorf("Expected 0 slots after deletion, got %d", len(slots))
	}
}

func TestAtomicOverwrite(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	first := config.Defaults()
	first.CANSpeed = 1
	mgr.SaveSlot(0, &first)

	second := config.Defaults()
	second.CANSpeed = 6
	mgr.SaveSlot(0, &second)

	var loaded config.DeviceSettings
	mgr.LoadSlot(0, &loaded)
	if loaded.CANSpeed != 6 {
		t.Errorf("CANSpeed: expected 6, got %d", loaded.CANSpeed)
	}
}

func TestStaleTempFileRemovedAtBoot(t *testing.T) {
	blockDev := tinyfs.NewMemoryDevice(256, 4096, 64)

	mgr, err := New(blockDev, true, testLogger())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	if err := mgr.atomicWrite(mgr.slotPath(2), make([]byte, config.SettingsSize)); err != nil {
		t.Fatalf("atomicWrite failed: %v", err)
	}
	f, err := mgr.fs.OpenFile(mgr.slotPath(4)+tempSuffix, os.O_WRONLY|os.O_CREATE)
	if err != nil {
		t.Fatalf("creating temp file failed: %v", err)
	}
	f.Write([]byte{1, 2, 3})
	f.Close()
	mgr.Close()

	mgr2, err := New(blockDev, false, testLogger())
	if err != nil {
		t.Fatalf("Failed to reopen storage: %v", err)
	}
	defer mgr2.Close()

	entries, err := mgr2.readDir(slotsDir)
	if err != nil {
		t.Fatalf("readDir failed: %v", err)
	}
	for _, e := range entries {
		if e.Name() == "4.bin"+tempSuffix {
			t.Error("stale temp file survived boot")
		}
	}
}

func TestSameVersionKeepsSlots(t *testing.T) {
	blockDev := tinyfs.NewMemoryDevice(256, 4096, 64)

	mgr, err := New(blockDev, true, testLogger())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	s := config.Defaults()
	mgr.SaveSlot(0, &s)
	mgr.Close()

	mgr2, err := New(blockDev, false, testLogger())
	if err != nil {
		t.Fatalf("Failed to reopen storage: %v", err)
	}
	defer mgr2.Close()

	if !mgr2.SlotExists(0) {
		t.Error("Slot should still exist when version matches")
	}
}

func TestVersionMismatchWipe(t *testing.T) {
	blockDev := tinyfs.NewMemoryDevice(256, 4096, 64)

	mgr, err := New(blockDev, true, testLogger())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	s := config.Defaults()
	mgr.SaveSlot(0, &s)
	mgr.SaveSlot(config.TempSlot, &s)

	// Simulate flash written by older firmware.
	old := make([]byte, 2)
	binary.LittleEndian.PutUint16(old, config.CurrentVersion+1)
	if err := mgr.atomicWrite(formatFile, old); err != nil {
		t.Fatalf("atomicWrite failed: %v", err)
	}
	mgr.Close()

	mgr2, err := New(blockDev, false, testLogger())
	if err != nil {
		t.Fatalf("Failed to reopen storage: %v", err)
	}
	defer mgr2.Close()

	slots, _ := mgr2.ListSlots()
	if len(slots) != 0 {
		t.Errorf("Expected slots wiped after version change, got %v", slots)
	}
	if needsWipe, err := mgr2.checkVersion(); err != nil || needsWipe {
		t.Errorf("format version should be rewritten: needsWipe=%v err=%v", needsWipe, err)
	}
}

func TestForceWipe(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	s := config.Defaults()
	mgr.SaveSlot(0, &s)
	mgr.SaveSlot(1, &s)

	if err := mgr.ForceWipe(); err != nil {
		t.Fatalf("ForceWipe failed: %v", err)
	}

	slots, _ := mgr.ListSlots()
	if len(slots) != 0 {
		t.Errorf("Expected 0 slots after reset, got %d", len(slots))
	}
}

func TestStorageStats(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	stats1, err := mgr.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats1.SlotCount != 0 {
		t.Errorf("Expected 0 slots initially, got %d", stats1.SlotCount)
	}

	for i := uint8(0); i < 5; i++ {
		s := config.Defaults()
		mgr.SaveSlot(i, &s)
	}

	stats2, err := mgr.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats2.SlotCount != 5 {
		t.Errorf("Expected 5 slots, got %d", stats2.SlotCount)
	}
	if stats2.TotalSpace != 256*1024 {
		t.Errorf("TotalSpace: expected %d, got %d", 256*1024, stats2.TotalSpace)
	}
	if stats2.UsedSpace <= stats1.UsedSpace {
		t.Errorf("UsedSpace should grow: %d -> %d", stats1.UsedSpace, stats2.UsedSpace)
	}
}

func BenchmarkSlotSave(b *testing.B) {
	mgr, _ := newTestStorage(b)
	defer mgr.Close()

	s := config.Defaults()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mgr.SaveSlot(uint8(i%config.SlotCount), &s)
	}
}

func BenchmarkSlotLoad(b *testing.B) {
	mgr, _ := newTestStorage(b)
	defer mgr.Close()

	s := config.Defaults()
	mgr.SaveSlot(0, &s)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var loaded config.DeviceSettings
		mgr.LoadSlot(0, &loaded)
	}
}
