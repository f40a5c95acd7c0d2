package main

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var sentences = []string{
	"The quick brown fox jumps over the lazy dog.",
	"A gentle breeze rustled the leaves of the old oak tree.",
	"She found a hidden key in the dusty attic.",
	"The city skyline glowed under the starry night sky.",
	"He whispered secrets to the wind, hoping they would travel far.",
	"Rain drummed on the rooftop, creating a soothing rhythm.",
	"A bright comet streaked across the horizon at midnight.",
	"They laughed together as fireworks painted the evening air.",
	"The ancient library held stories that never faded.",
	"Beneath the waves, coral gardens shimmered in colors unseen.",
	"The hummingbird hovered beside a vibrant purple flower.",
	"A mysterious map led them to a forgotten treasure.",
	"Her heart raced as she stepped onto the stage for the first time.",
	"Sunlight filtered through curtains, turning dust motes into golden specks.",
	"They tasted the sweetest strawberries from the farmer's garden.",
	"The old clock chimed thirteen times in an abandoned town.",
	"A sudden thunderclap shattered the silence of the forest.",
	"He composed a melody that echoed through the valleys.",
	"The desert dunes shifted silently under a pale moon.",
	"A small kitten meowed softly, waiting for warmth.",
	"She painted the sunset with bold strokes of crimson and gold.",
	"A silver fox slipped past the fences into the twilight.",
	"They discovered an ancient rune carved deep within the stone.",
	"The wind carried scents of jasmine from distant gardens.",
	"He built a wooden bridge across the swift river.",
	"Her laughter echoed through the empty halls of the old manor.",
	"A lone wolf howled, echoing into the vast night.",
	"They tasted coffee brewed fresh in the quiet dawn.",
	"The moon rose slowly, casting silver light on the lake.",
	"A child drew a rainbow with crayons on the sidewalk.",
}

var (
	firstNames = []string{"Ann", "Boris", "Carla", "Dmitri", "Elena", "Farid", "Greta", "Hugo", "Irina", "Jonas", "Katya", "Lev"}
	lastNames  = []string{"Lee", "Petrov", "Silva", "Novak", "Berg", "Karimov", "Olsen", "Moreau", "Sokolova", "Weber"}
	cities     = []string{"Lisbon", "Tallinn", "Riga", "Porto", "Vilnius", "Gdansk", "Turku"}
	domains    = []string{"example.com", "example.org", "mail.test"}
)

var (
	outDir       = flag.String("out", "databases", "directory to write the sample datasets into")
	seedFileName = flag.String("src", "", "file of seed text lines")
	peopleCount  = flag.Int("people", 200, "number of people rows to generate")
	randomSeed   = flag.Uint64("seed", 1, "random seed")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

type person struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	City  string `json:"city"`
	IP    string `json:"ip"`
}

func (p person) record() []string {
	return []string{p.Name, p.Phone, p.Email, p.City, p.IP}
}

var header = []string{"name", "phone", "email", "city", "ip"}

// linesFromFile returns an iterator over lines in a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
	}, nil
}

// linesFromSlice returns an iterator over a slice of strings.
func linesFromSlice(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !yield(line) {
				return
			}
		}
	}
}

func generatePeople(r *rand.Rand, n int) []person {
	people := make([]person, n)
	for i := range people {
		first := firstNames[r.IntN(len(firstNames))]
		last := lastNames[r.IntN(len(lastNames))]
		people[i] = person{
			Name:  first + " " + last,
			Phone: fmt.Sprintf("+1-555-%03d-%04d", r.IntN(1000), r.IntN(10000)),
			Email: fmt.Sprintf("%s.%s%d@%s", strings.ToLower(first), strings.ToLower(last), i, domains[r.IntN(len(domains))]),
			City:  cities[r.IntN(len(cities))],
			IP:    fmt.Sprintf("10.%d.%d.%d", r.IntN(256), r.IntN(256), 1+r.IntN(254)),
		}
	}
	return people
}

func writeCSV(path string, people []person) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, p := range people {
		if err := w.Write(p.record()); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeXLSX(path string, people []person) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, p := range people {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := p.record()
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writeText(path string, source iter.Seq[string]) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	count := 0
	for line := range source {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return count, err
		}
		count++
	}
	return count, w.Flush()
}

// inventory is a nested document rather than a table.
func inventory(people []person) map[string]any {
	hosts := make([]map[string]any, 0, min(len(people), 10))
	for _, p := range people[:min(len(people), 10)] {
		hosts = append(hosts, map[string]any{
			"owner": p.Name,
			"addr":  p.IP,
			"tags":  []string{strings.ToLower(p.City), "managed"},
		})
	}
	return map[string]any{
		"site":  "primary",
		"hosts": hosts,
	}
}

func main() {
	if err := os.MkdirAll(filepath.Join(*outDir, "contacts"), 0o755); err != nil {
		panic(err)
	}

	r := rand.New(rand.NewPCG(*randomSeed, *randomSeed))
	people := generatePeople(r, *peopleCount)
	half := len(people) / 2

	// Determine source of seed data
	var source iter.Seq[string]
	var err error
	if seedFileName != nil && *seedFileName != "" {
		source, err = linesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = linesFromSlice(sentences)
	}

	if err := writeCSV(filepath.Join(*outDir, "contacts", "people.csv"), people[:half]); err != nil {
		panic(err)
	}
	if err := writeXLSX(filepath.Join(*outDir, "contacts", "people.xlsx"), people[half:]); err != nil {
		panic(err)
	}
	if err := writeJSON(filepath.Join(*outDir, "people.json"), people); err != nil {
		panic(err)
	}
	if err := writeJSON(filepath.Join(*outDir, "inventory.json"), inventory(people)); err != nil {
		panic(err)
	}
	lines, err := writeText(filepath.Join(*outDir, "notes.txt"), source)
	if err != nil {
		panic(err)
	}

	slog.Info("seeded sample datasets", "dir", *outDir, "people", len(people), "notes", lines)
}
