package models

// Plan представляет тарифный план VPN.
type Plan struct {
	ID        string `json:"id"`        // Идентификатор плана
	Duration  string `json:"duration"`  // Отображаемая длительность
	Days      int    `json:"days"`      // Длительность в днях
	Price     int    `json:"price"`     // Цена, ₽
	Highlight bool   `json:"highlight"` // Выделять ли план в каталоге
	IsTrial   bool   `json:"is_trial"`  // Пробный план, не более одного в каталоге
}

// VPNPlans возвращает каталог тарифных планов по умолчанию.
// Пробный план исключается, если пользователь уже использовал trial.
func VPNPlans(trialUsed bool) []Plan {
	plans := []Plan{
		{ID: "trial", Duration: "Пробный тариф", Days: 1, Price: 0, Highlight: true, IsTrial: true},
		{ID: "1m", Duration: "1 месяц", Days: 30, Price: 99},
		{ID: "3m", Duration: "3 месяца", Days: 90, Price: 249},
		{ID: "6m", Duration: "6 месяцев", Days: 180, Price: 449},
		{ID: "1y", Duration: "1 ГОД", Days: 365, Price: 799, Highlight: true},
		{ID: "2y", Duration: "2 ГОДА", Days: 730, Price: 1199},
	}
	if !trialUsed {
		return plans
	}
	res := make([]Plan, 0, len(plans))
	for _, p := range plans {
		if !p.IsTrial {
			res = append(res, p)
		}
	}
	return res
}

// FindPlan ищет план по идентификатору в каталоге.
func FindPlan(plans []Plan, id string) (Plan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}
