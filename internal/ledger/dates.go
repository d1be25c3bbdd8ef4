package ledger

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	numericDateRe = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{2,4})`)
	dayMonthRe    = regexp.MustCompile(`(\d{1,2})\s+([а-яА-ЯёЁ]+)`)
)

// Месяцы принимаются и в родительном падеже, и в трёхбуквенном сокращении.
var monthNames = map[string]time.Month{
	"января": time.January, "февраля": time.February, "марта": time.March,
	"апреля": time.April, "мая": time.May, "июня": time.June,
	"июля": time.July, "августа": time.August, "сентября": time.September,
	"октября": time.October, "ноября": time.November, "декабря": time.December,
	"янв": time.January, "фев": time.February, "мар": time.March,
	"апр": time.April, "май": time.May, "июн": time.June,
	"июл": time.July, "авг": time.August, "сен": time.September,
	"окт": time.October, "ноя": time.November, "дек": time.December,
}

// ParseDueDate разбирает дату транша, введённую оператором.
// Поддерживаются форматы "дд.мм.гг" / "дд.мм.гггг" и "дд месяц"
// (месяц по-русски, год текущий). Если разобрать не удалось,
// возвращается дата через месяц от now и ok=false - запись не должна
// выпадать из расписания из-за опечатки.
func ParseDueDate(text string, now time.Time) (due time.Time, ok bool) {
	if m := numericDateRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		yearStr := m[3]
		if len(yearStr) == 2 {
			yearStr = "20" + yearStr
		}
		year, _ := strconv.Atoi(yearStr)
		if month >= 1 && month <= 12 {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location()), true
		}
	}

	if m := dayMonthRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		if month, found := monthNames[strings.ToLower(m[2])]; found {
			return time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location()), true
		}
	}

	return now.AddDate(0, 1, 0), false
}

// DaysUntil возвращает количество полных суток до due, округляя вверх.
// 0 означает "сегодня", отрицательное значение - срок прошёл.
func DaysUntil(due, now time.Time) int {
	diff := due.Sub(now)
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) > 0 {
		days++
	}
	return days
}
