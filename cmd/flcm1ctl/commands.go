package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/tuffrabit/tinygo-flcm1/pkg/config"
	"github.com/tuffrabit/tinygo-flcm1/pkg/hostconfig"
	"github.com/tuffrabit/tinygo-flcm1/pkg/protocol"
)

var errUsage = errors.New("usage")

type command struct {
	args  string
	help  string
	nargs int // -1: any
	run   func(s *session, args []string) error
}

// session runs commands against one device.
type session struct {
	c   *protocol.Client
	out io.Writer
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"ping":    {"", "check the device answers", 0, (*session).ping},
		"version": {"", "show firmware and settings format versions", 0, (*session).version},
		"dump":    {"[file]", "write the live settings as YAML", -1, (*session).dump},
		"restore": {"file", "replace the live settings from YAML", 1, (*session).restore},
		"get":     {"field index", "read one field", 2, (*session).get},
		"set":     {"field index value", "write one field", 3, (*session).set},
		"save":    {"slot", "store the live settings in a slot", 1, (*session).save},
		"load":    {"slot", "make a slot the live settings", 1, (*session).load},
		"show":    {"slot", "print a slot as YAML without loading it", 1, (*session).show},
		"delete":  {"slot", "erase a slot", 1, (*session).delete},
		"slots":   {"", "list occupied slots", 0, (*session).slots},
		"stats":   {"", "show flash usage", 0, (*session).stats},
		"reset":   {"", "erase every slot and restore the factory settings", 0, (*session).reset},
		"fields":  {"", "list field names", 0, (*session).fields},
		"batch":   {"file|-", "run commands from a script, one per line", 1, (*session).batch},
	}
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "commands:")
	for _, n := range names {
		c := commands[n]
		fmt.Fprintf(w, "  %-8s %-18s %s\n", n, c.args, c.help)
	}
}

// exec runs one command line split into words.
func (s *session) exec(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}
	rest := args[1:]
	if cmd.nargs >= 0 && len(rest) != cmd.nargs {
		return fmt.Errorf("%s %s: %w", args[0], cmd.args, errUsage)
	}
	return cmd.run(s, rest)
}

func (s *session) ping(args []string) error {
	if err := s.c.Ping([]byte("flcm1ctl")); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "ok")
	return nil
}

func (s *session) version(args []string) error {
	v, err := s.c.Version()
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, v)
	return nil
}

func (s *session) dump(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("dump [file]: %w", errUsage)
	}
	st, err := s.c.Settings()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		return hostconfig.SaveSettings(args[0], st)
	}
	return hostconfig.EncodeSettings(s.out, st)
}

func (s *session) restore(args []string) error {
	st, err := hostconfig.LoadSettings(args[0])
	if err != nil {
		return err
	}
	return s.c.SetSettings(st)
}

func parseField(name, index string) (config.FieldKind, int, error) {
	kind, err := config.ParseFieldKind(name)
	if err != nil {
		return config.FieldNone, 0, err
	}
	i, err := strconv.Atoi(index)
	if err != nil || i < 0 || i >= kind.Len() {
		return config.FieldNone, 0, fmt.Errorf("%s: index must be 0-%d", kind, kind.Len()-1)
	}
	return kind, i, nil
}

// parseValue accepts decimal, 0x hex and negative numbers. Negative
// thresholds are sent as two's complement.
func parseValue(s string) (uint64, error) {
	if strings.HasPrefix(s, "-") {
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q: %w", s, err)
		}
		return uint64(v), nil
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q: %w", s, err)
	}
	return v, nil
}

func (s *session) get(args []string) error {
	kind, i, err := parseField(args[0], args[1])
	if err != nil {
		return err
	}
	v, err := s.c.Field(kind, i)
	if err != nil {
		return err
	}
	if kind.Wide() {
		fmt.Fprintf(s.out, "%s[%d] = %d (0x%X)\n", kind, i, v, v)
	} else {
		fmt.Fprintf(s.out, "%s[%d] = %d (0x%X)\n", kind, i, int64(v), uint32(v))
	}
	return nil
}

func (s *session) set(args []string) error {
	kind, i, err := parseField(args[0], args[1])
	if err != nil {
		return err
	}
	v, err := parseValue(args[2])
	if err != nil {
		return err
	}
	return s.c.SetField(kind, i, v)
}

func parseSlot(arg string) (uint8, error) {
	n, err := strconv.ParseUint(arg, 10, 8)
	if err != nil || n >= config.SlotCount {
		return 0, fmt.Errorf("slot must be 0-%d", config.SlotCount-1)
	}
	return uint8(n), nil
}

func (s *session) save(args []string) error {
	slot, err := parseSlot(args[0])
	if err != nil {
		return err
	}
	return s.c.Save(slot)
}

func (s *session) load(args []string) error {
	slot, err := parseSlot(args[0])
	if err != nil {
		return err
	}
	return s.c.Load(slot)
}

func (s *session) show(args []string) error {
	slot, err := parseSlot(args[0])
	if err != nil {
		return err
	}
	st, err := s.c.Slot(slot)
	if err != nil {
		return err
	}
	return hostconfig.EncodeSettings(s.out, st)
}

func (s *session) delete(args []string) error {
	slot, err := parseSlot(args[0])
	if err != nil {
		return err
	}
	return s.c.DeleteSlot(slot)
}

func (s *session) slots(args []string) error {
	slots, err := s.c.Slots()
	if err != nil {
		return err
	}
	for _, n := range slots {
		label := ""
		if n == config.TempSlot {
			label = " (kept across power cycles)"
		}
		fmt.Fprintf(s.out, "%d%s\n", n, label)
	}
	return nil
}

func (s *session) stats(args []string) error {
	st, err := s.c.Stats()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "total %d, used %d, free %d, slots %d\n", st.TotalSpace, st.UsedSpace, st.FreeSpace, st.SlotCount)
	return nil
}

func (s *session) reset(args []string) error {
	return s.c.FactoryReset()
}

func (s *session) fields(args []string) error {
	for k := config.CANSpeed; k.Valid(); k++ {
		fmt.Fprintf(s.out, "%-16s 0-%d\n", k, k.Len()-1)
	}
	return nil
}

func (s *session) batch(args []string) error {
	var r io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	return s.runScript(r)
}

// runScript runs every line of r. Blank lines and lines starting with #
// are skipped. The first failing line stops the script.
func (s *session) runScript(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words, err := shlex.Split(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		if len(words) > 0 && words[0] == "batch" {
			return fmt.Errorf("line %d: batch cannot nest", n)
		}
		if err := s.exec(words); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
	}
	return sc.Err()
}
