package allocation

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/iliyamo/retreat-allocation/internal/model"
)

// Priority ranks. Lower is served first.
const (
	RankOldOrServer = 0
	RankNew         = 1
	RankUnknown     = 2
)

// categoryPrefix returns the leading letters of a normalized confirmation
// code ("om12" -> "OM", "N-2" -> "N").
func categoryPrefix(confNo string) string {
	code := NormalizeLabel(confNo)
	end := 0
	for end < len(code) && code[end] >= 'A' && code[end] <= 'Z' {
		end++
	}
	return code[:end]
}

// Rank derives the priority tier from a confirmation code: 0 for old
// students and servers (OM, OF, SM, SF), 1 for new students (N...), 2 for
// anything else including pending codes.
func Rank(confNo string) int {
	prefix := categoryPrefix(confNo)
	switch prefix {
	case "OM", "OF", "SM", "SF":
		return RankOldOrServer
	}
	if strings.HasPrefix(prefix, "N") {
		return RankNew
	}
	return RankUnknown
}

// IsServer reports whether the confirmation code belongs to a server
// (SM / SF).  Servers are seated manually and never auto-assigned.
func IsServer(confNo string) bool {
	prefix := categoryPrefix(confNo)
	return prefix == "SM" || prefix == "SF"
}

// CourseHistory is the parsed form of a course-history note.
type CourseHistory struct {
	Short int // S: short courses sat
	Long  int // L: long courses sat
}

// ParseCourseHistory reads the S and L counts out of free text.
//
// Grammar, case-insensitive, tokens anywhere in the text:
//
//	token     = ("S" | "L") [sep] digits
//	sep       = ":" | "=" | "-"   (spaces allowed around it)
//
// A token letter glued to a preceding letter ("SL", "Sat") is not a token.
// The first occurrence of each token wins; a missing token counts as 0.
func ParseCourseHistory(text string) CourseHistory {
	var h CourseHistory
	var seenS, seenL bool
	rs := []rune(strings.ToUpper(text))
	for i := 0; i < len(rs); i++ {
		c := rs[i]
		if c != 'S' && c != 'L' {
			continue
		}
		if i > 0 && isASCIILetter(rs[i-1]) {
			continue
		}
		j := skipSpaces(rs, i+1)
		if j < len(rs) && (rs[j] == ':' || rs[j] == '=' || rs[j] == '-') {
			j = skipSpaces(rs, j+1)
		}
		k := j
		for k < len(rs) && rs[k] >= '0' && rs[k] <= '9' {
			k++
		}
		if k == j {
			continue
		}
		n, err := strconv.Atoi(string(rs[j:k]))
		if err != nil {
			continue
		}
		switch {
		case c == 'S' && !seenS:
			h.Short, seenS = n, true
		case c == 'L' && !seenL:
			h.Long, seenL = n, true
		}
		i = k - 1
	}
	return h
}

func isASCIILetter(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}

func skipSpaces(rs []rune, i int) int {
	for i < len(rs) && (rs[i] == ' ' || rs[i] == '\t') {
		i++
	}
	return i
}

// Score is the seniority score of a history; long courses dominate.
func (h CourseHistory) Score() int {
	return h.Long*10000 + h.Short*10
}

// SeniorityScore parses text and returns L*10000 + S*10.
func SeniorityScore(coursesInfoText string) int {
	return ParseCourseHistory(coursesInfoText).Score()
}

// Priority is the ordering key of a participant for automatic assignment.
type Priority struct {
	Rank      int
	Seniority int
	Age       int
}

// PriorityOf computes the ordering key of p.
func PriorityOf(p *model.Participant) Priority {
	return Priority{
		Rank:      Rank(p.ConfNo),
		Seniority: SeniorityScore(p.CoursesInfoText),
		Age:       p.Age,
	}
}

// Compare orders a before b when a is served first: rank ascending,
// seniority descending, age descending.
func (a Priority) Compare(b Priority) int {
	if c := cmp.Compare(a.Rank, b.Rank); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Seniority, a.Seniority); c != 0 {
		return c
	}
	return cmp.Compare(b.Age, a.Age)
}

// SortByPriority orders participants in place by their priority key.
// Equal keys keep their relative order.
func SortByPriority(ps []*model.Participant) {
	keys := make(map[*model.Participant]Priority, len(ps))
	for _, p := range ps {
		keys[p] = PriorityOf(p)
	}
	slices.SortStableFunc(ps, func(a, b *model.Participant) int {
		return keys[a].Compare(keys[b])
	})
}
