package sale

import (
	"fmt"
	"math"
	"strings"

	"masterpay/internal/models"
	"masterpay/internal/utils"
)

// Generate строит итоговое сообщение о продаже для команды.
// Чистая функция: запись на входе, текст на выходе.
func Generate(r models.SaleRecord) string {
	rate := r.PackageType.Rate()
	packageName := r.PackageType.LowerName()
	commission := math.Round(r.PaidAmount * rate)
	percent := int(math.Round(rate * 100))
	remainder := r.TotalAmount - r.PaidAmount

	var paymentDescription string
	if r.PaidAmount >= r.TotalAmount {
		paymentDescription = fmt.Sprintf("это один полный перевод за %d практик%s",
			r.PracticesCount, practicesAccusative(r.PracticesCount))
	} else {
		paymentDescription = "это один перевод"
	}

	clientFemale := IsFemaleName(r.ClientName)
	masterFemale := IsFemaleName(r.MasterName)

	var b strings.Builder
	fmt.Fprintf(&b, `Новая продажа!🗝️
%s.
Набор «%s» из %d практик%s

Вел%s %s %s 👏🏼

Сейчас %s отправил%s по факту %s , %s

За ведение человека до результата – %d%% мастеров поддержки (так как набор %s)

Сейчас с %s - %d%% - это %s р`,
		r.ClientName,
		packageName,
		r.PracticesCount,
		practicesGenitive(r.PracticesCount),
		femaleSuffix(masterFemale),
		pronoun(clientFemale),
		r.MasterName,
		r.ClientName,
		femaleSuffix(clientFemale),
		utils.FormatAmount(r.PaidAmount),
		paymentDescription,
		percent,
		packageName,
		utils.FormatAmount(r.PaidAmount),
		percent,
		utils.FormatNumber(commission),
	)

	if remainder > 0 {
		if len(r.RemainderPayments) > 0 {
			fmt.Fprintf(&b, "\nОстаток %s:", utils.FormatAmount(remainder))
			for _, payment := range r.RemainderPayments {
				fmt.Fprintf(&b, "\n• %s до %s", utils.FormatAmount(payment.Amount), payment.Date)
			}
		} else {
			fmt.Fprintf(&b, "\nОстаток %s.", utils.FormatAmount(remainder))
		}
	} else {
		b.WriteString("\nОстаток 0.")
		if r.PackageType == models.PackageExpansion {
			b.WriteString("\nНу если только ещё не решит практики делать😊 думаю, что ещё захочет ещё)")
		}
	}

	switch r.PackageType {
	case models.PackageStarter:
		b.WriteString("\n\nПошли абонементы! Мы с вами вместе укрепили этот формат 👏🏼")
	case models.PackageScale:
		b.WriteString("\n\nЖмём пружину на вершину!")
	}

	return b.String()
}

// IsFemaleName - эвристика рода по окончанию имени (а/я/на).
// Работает не всегда, используется только для склонений в тексте.
func IsFemaleName(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, "а") ||
		strings.HasSuffix(lower, "я") ||
		strings.HasSuffix(lower, "на")
}

func femaleSuffix(female bool) string {
	if female {
		return "а"
	}
	return ""
}

func pronoun(female bool) string {
	if female {
		return "её"
	}
	return "его"
}

// "из N практик(и)": 2-4 - "практики", от 5 - "практик", 1 - "практики".
func practicesGenitive(n int) string {
	if n > 1 && n < 5 {
		return "и"
	}
	if n >= 5 {
		return ""
	}
	return "и"
}

// "за N практик(у/и)": 2-4 - "практики", от 5 - "практик", 1 - "практику".
func practicesAccusative(n int) string {
	if n > 1 && n < 5 {
		return "и"
	}
	if n >= 5 {
		return ""
	}
	return "у"
}
