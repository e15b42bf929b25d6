package harness

import (
	"errors"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/hostloop/internal/host"
	"github.com/roach88/hostloop/internal/simhost"
)

// actionFunc applies one scripted host mutation.
type actionFunc func(h *simhost.Host, args *yaml.Node) error

type itemArgs struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Stack int    `yaml:"stack"`
}

func (a itemArgs) item() *host.Item {
	if a.ID == "" {
		return nil
	}
	name := a.Name
	if name == "" {
		name = a.ID
	}
	stack := a.Stack
	if stack == 0 {
		stack = 1
	}
	return &host.Item{ID: a.ID, Name: name, Stack: stack}
}

type entityArgs struct {
	Location   string `yaml:"location"`
	Collection string `yaml:"collection"`
	ID         string `yaml:"id"`
	Kind       string `yaml:"kind"`
	X          int    `yaml:"x"`
	Y          int    `yaml:"y"`
}

// actions maps scenario action names to host mutations.
var actions = map[string]actionFunc{
	"start_load": func(h *simhost.Host, n *yaml.Node) error {
		var a struct {
			SaveID string `yaml:"save_id"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		h.StartLoad(orDefault(a.SaveID, "scenario-save"))
		return nil
	},
	"start_new_game": func(h *simhost.Host, n *yaml.Node) error {
		var a struct {
			SaveID string `yaml:"save_id"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		h.StartNewGame(orDefault(a.SaveID, "scenario-save"))
		return nil
	},
	"fail_load": func(h *simhost.Host, n *yaml.Node) error {
		var a struct {
			Message string `yaml:"message"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		h.FailLoad(errors.New(orDefault(a.Message, "corrupt save")))
		return nil
	},
	"return_to_title": func(h *simhost.Host, n *yaml.Node) error {
		h.ReturnToTitle()
		return nil
	},
	"set_saving": func(h *simhost.Host, n *yaml.Node) error {
		var a struct {
			Saving  bool `yaml:"saving"`
			NewGame bool `yaml:"new_game"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		h.SetSaving(a.Saving, a.NewGame)
		return nil
	},
	"end_day": func(h *simhost.Host, n *yaml.Node) error {
		h.EndDay()
		return nil
	},
	"set_inventory_slot": func(h *simhost.Host, n *yaml.Node) error {
		var a struct {
			Slot     int `yaml:"slot"`
			itemArgs `yaml:",inline"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		h.SetInventorySlot(a.Slot, a.item())
		return nil
	},
	"set_stack": func(h *simhost.Host, n *yaml.Node) error {
		var a struct {
			Slot  int `yaml:"slot"`
			Stack int `yaml:"stack"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		h.MutateInventoryInPlace(a.Slot, a.Stack)
		return nil
	},
	"set_skill": func(h *simhost.Host, n *yaml.Node) error {
		var a struct {
			Skill string `yaml:"skill"`
			Level int    `yaml:"level"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		if a.Skill == "" {
			return fmt.Errorf("set_skill: skill is required")
		}
		h.SetSkill(a.Skill, a.Level)
		return nil
	},
	"warp": func(h *simhost.Host, n *yaml.Node) error {
		var a struct {
			Location string `yaml:"location"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		h.Warp(a.Location)
		return nil
	},
	"add_location": func(h *simhost.Host, n *yaml.Node) error {
		var a struct {
			Name string `yaml:"name"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		if a.Name == "" {
			return fmt.Errorf("add_location: name is required")
		}
		h.AddLocation(host.Location{Name: a.Name})
		return nil
	},
	"remove_location": func(h *simhost.Host, n *yaml.Node) error {
		var a struct {
			Name string `yaml:"name"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		h.RemoveLocation(a.Name)
		return nil
	},
	"add_entity": func(h *simhost.Host, n *yaml.Node) error {
		var a entityArgs
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		return updateCollection(h, a, func(list []host.Entity) []host.Entity {
			return append(list, host.Entity{ID: a.ID, Kind: orDefault(a.Kind, a.Collection), Tile: host.Point{X: a.X, Y: a.Y}})
		})
	},
	"remove_entity": func(h *simhost.Host, n *yaml.Node) error {
		var a entityArgs
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		return updateCollection(h, a, func(list []host.Entity) []host.Entity {
			return slices.DeleteFunc(list, func(e host.Entity) bool { return e.ID == a.ID })
		})
	},
	"move_entity": func(h *simhost.Host, n *yaml.Node) error {
		var a entityArgs
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		return updateCollection(h, a, func(list []host.Entity) []host.Entity {
			for i := range list {
				if list[i].ID == a.ID {
					list[i].Tile = host.Point{X: a.X, Y: a.Y}
				}
			}
			return list
		})
	},
	"set_chest_slot": func(h *simhost.Host, n *yaml.Node) error {
		var a struct {
			Location string `yaml:"location"`
			Chest    string `yaml:"chest"`
			Slot     int    `yaml:"slot"`
			itemArgs `yaml:",inline"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		found := false
		h.UpdateLocation(a.Location, func(l *host.Location) {
			for i := range l.Chests {
				if l.Chests[i].ID != a.Chest {
					continue
				}
				for len(l.Chests[i].Items) <= a.Slot {
					l.Chests[i].Items = append(l.Chests[i].Items, nil)
				}
				l.Chests[i].Items[a.Slot] = a.item()
				found = true
			}
		})
		if !found {
			return fmt.Errorf("set_chest_slot: no chest %q in %q", a.Chest, a.Location)
		}
		return nil
	},
	"set_time": func(h *simhost.Host, n *yaml.Node) error {
		var a struct {
			Year      int    `yaml:"year"`
			Season    string `yaml:"season"`
			Day       int    `yaml:"day"`
			TimeOfDay int    `yaml:"time_of_day"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		h.SetTime(host.GameTime{Year: a.Year, Season: a.Season, Day: a.Day, TimeOfDay: a.TimeOfDay})
		return nil
	},
	"press": func(h *simhost.Host, n *yaml.Node) error {
		var a struct {
			Button string `yaml:"button"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		in := copyInput(h.Input())
		if !slices.Contains(in.Pressed, a.Button) {
			in.Pressed = append(in.Pressed, a.Button)
		}
		h.SetInput(in)
		return nil
	},
	"release": func(h *simhost.Host, n *yaml.Node) error {
		var a struct {
			Button string `yaml:"button"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		in := copyInput(h.Input())
		in.Pressed = slices.DeleteFunc(in.Pressed, func(b string) bool { return b == a.Button })
		h.SetInput(in)
		return nil
	},
	"move_cursor": func(h *simhost.Host, n *yaml.Node) error {
		var a host.Point
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		in := copyInput(h.Input())
		in.Cursor = a
		h.SetInput(in)
		return nil
	},
	"scroll": func(h *simhost.Host, n *yaml.Node) error {
		var a struct {
			Delta int `yaml:"delta"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		in := copyInput(h.Input())
		in.Wheel += a.Delta
		h.SetInput(in)
		return nil
	},
	"resize": func(h *simhost.Host, n *yaml.Node) error {
		var a host.Size
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		h.SetWindowSize(a)
		return nil
	},
	"set_menu": func(h *simhost.Host, n *yaml.Node) error {
		var a struct {
			Name string `yaml:"name"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		h.SetMenu(a.Name)
		return nil
	},
	"set_locale": func(h *simhost.Host, n *yaml.Node) error {
		var a struct {
			Locale string `yaml:"locale"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		h.SetLocale(a.Locale)
		return nil
	},
	"fail_advance": func(h *simhost.Host, n *yaml.Node) error {
		var a struct {
			Count int  `yaml:"count"`
			Panic bool `yaml:"panic"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		h.FailAdvance(a.Count, a.Panic)
		return nil
	},
	"fail_render": func(h *simhost.Host, n *yaml.Node) error {
		var a struct {
			Count int  `yaml:"count"`
			Panic bool `yaml:"panic"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return err
		}
		h.FailRender(a.Count, a.Panic)
		return nil
	},
}

// ActionNames lists the supported host actions, sorted.
func ActionNames() []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func applyAction(h *simhost.Host, name string, args *yaml.Node) error {
	fn, ok := actions[name]
	if !ok {
		return fmt.Errorf("unknown action %q", name)
	}
	if err := fn(h, args); err != nil {
		return fmt.Errorf("action %s: %w", name, err)
	}
	return nil
}

// decodeArgs decodes an args node. A missing node leaves v untouched.
func decodeArgs(n *yaml.Node, v any) error {
	if n == nil || n.Kind == 0 {
		return nil
	}
	if err := n.Decode(v); err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	return nil
}

func updateCollection(h *simhost.Host, a entityArgs, fn func([]host.Entity) []host.Entity) error {
	if a.ID == "" {
		return fmt.Errorf("entity id is required")
	}
	var err error
	found := false
	h.UpdateLocation(a.Location, func(l *host.Location) {
		found = true
		switch a.Collection {
		case "npcs":
			l.NPCs = fn(l.NPCs)
		case "objects":
			l.Objects = fn(l.Objects)
		case "buildings":
			l.Buildings = fn(l.Buildings)
		case "debris":
			l.Debris = fn(l.Debris)
		case "terrain_features":
			l.TerrainFeatures = fn(l.TerrainFeatures)
		default:
			err = fmt.Errorf("unknown collection %q", a.Collection)
		}
	})
	if !found {
		return fmt.Errorf("unknown location %q", a.Location)
	}
	return err
}

func copyInput(in host.InputState) host.InputState {
	in.Pressed = slices.Clone(in.Pressed)
	return in
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
