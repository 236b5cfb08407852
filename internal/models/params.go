package models

// DepositParams - константы vault-контракта, читаются один раз при инициализации
//
// Все периоды в секундах. Управляют окнами eligibility:
// - депозит моложе MinDepositTerm не участвует в выборе на закрытие
// - претендент на challenge должен быть открыт за MinDepositTerm +
//   ChallengeImmunityPeriod до момента force-close
// - force-close становится committable через ChallengingPeriod после ts
type DepositParams struct {
	MinDepositTerm          int64 `json:"min_deposit_term"`
	ChallengeImmunityPeriod int64 `json:"challenge_immunity_period"`
	ChallengingPeriod       int64 `json:"challenging_period"`
}

// CurveParams - параметры кривой для расчёта целевой цены
//
// GrowthFactor и RateUpdateTs обновляются внешними rate-update событиями.
type CurveParams struct {
	InterestRate float64 `json:"interest_rate"`
	GrowthFactor float64 `json:"growth_factor"`
	RateUpdateTs int64   `json:"rate_update_ts"`
}
