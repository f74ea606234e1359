package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/noah-isme/sma-roadmap-api/internal/models"
	"github.com/noah-isme/sma-roadmap-api/internal/planner"
	"github.com/noah-isme/sma-roadmap-api/pkg/planfile"
)

func main() {
	var (
		start          string
		end            string
		days           string
		exclusionsPath string
		lessonsFlag    string
		normalizePath  string
		strict         bool
	)

	flag.StringVar(&start, "start", "", "Term start date (YYYY-MM-DD)")
	flag.StringVar(&end, "end", "", "Term end date (YYYY-MM-DD)")
	flag.StringVar(&days, "days", "SUN,MON,TUE,WED,THU", "Instructional weekdays, first one anchors the week")
	flag.StringVar(&exclusionsPath, "exclusions", "", "Exclusions file (.yaml, .yml or .json)")
	flag.StringVar(&lessonsFlag, "lessons", "", "Comma separated lessons as name:pacing")
	flag.StringVar(&normalizePath, "normalize", "", "Rewrite the exclusions to this path after decoding")
	flag.BoolVar(&strict, "strict", false, "Exit non-zero when planned pacing exceeds available days")
	flag.Parse()

	if start == "" || end == "" {
		log.Fatal("-start and -end are required")
	}
	pattern, err := planner.ParsePattern(days)
	if err != nil {
		log.Fatalf("invalid -days: %v", err)
	}

	var exclusions planfile.Exclusions
	if exclusionsPath != "" {
		if exclusions, err = planfile.ReadFile(exclusionsPath); err != nil {
			log.Fatalf("failed to load exclusions: %v", err)
		}
	}
	if normalizePath != "" {
		if err := planfile.WriteFile(normalizePath, exclusions); err != nil {
			log.Fatalf("failed to write exclusions: %v", err)
		}
	}

	lessons, err := parseLessons(lessonsFlag)
	if err != nil {
		log.Fatalf("invalid -lessons: %v", err)
	}

	roadmap := planner.New(pattern).Build(models.RoadmapInput{
		StartDate:      start,
		EndDate:        end,
		DayExclusions:  exclusions.DayExclusions,
		WeekExclusions: exclusions.WeekExclusions,
		Lessons:        lessons,
	})

	printRoadmap(roadmap)
	if strict && roadmap.Capacity.OverCapacity {
		os.Exit(1)
	}
}

func parseLessons(raw string) ([]models.Lesson, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var lessons []models.Lesson
	for i, item := range strings.Split(raw, ",") {
		name, pacingRaw, found := strings.Cut(strings.TrimSpace(item), ":")
		if name == "" {
			return nil, fmt.Errorf("lesson %d has no name", i+1)
		}
		pacing := 1
		if found {
			p, err := strconv.Atoi(pacingRaw)
			if err != nil {
				return nil, fmt.Errorf("lesson %q: pacing %q is not a number", name, pacingRaw)
			}
			pacing = p
		}
		lessons = append(lessons, models.Lesson{ID: fmt.Sprintf("L%d", i+1), Name: name, Pacing: pacing})
	}
	return lessons, nil
}

func printRoadmap(roadmap models.Roadmap) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WEEK\tDATE\tDAY\tLESSON\tNOTE")
	for _, week := range roadmap.Weeks {
		for _, day := range week.Days {
			note := day.BlockLabel
			if note == "" && day.IsBlocked {
				note = "blocked"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", week.DisplayLabel, day.Date, day.Weekday, day.LessonName, note)
		}
	}
	_ = w.Flush()

	c := roadmap.Capacity
	fmt.Printf("\nAvailable: %d days over %d weeks. Planned: %d days. Remaining: %d.\n",
		roadmap.Stats.TotalAvailableDays, roadmap.Stats.TotalAvailableWeeks, c.PlannedDays, c.RemainingDays)
	if c.OverCapacity {
		fmt.Println("Planned pacing exceeds the available days; trailing lessons are unscheduled.")
	}
}
