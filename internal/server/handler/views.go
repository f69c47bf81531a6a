package handler

import (
	"time"

	"github.com/aegistech/base-markets/internal/domain"
	"github.com/aegistech/base-markets/internal/service"
	"github.com/aegistech/base-markets/internal/unstake"
)

type marketView struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	Description string    `json:"description"`
	EndDate     time.Time `json:"endDate"`
	Volume      float64   `json:"volume"`
	YesPrice    float64   `json:"yesPrice"`
	NoPrice     float64   `json:"noPrice"`
	ImageURL    string    `json:"imageUrl"`
	Category    string    `json:"category"`
	IsResolved  bool      `json:"isResolved"`
	Winner      string    `json:"winner,omitempty"`
}

func toMarketView(m domain.Market) marketView {
	return marketView{
		ID:          m.ID,
		Question:    m.Question,
		Description: m.Description,
		EndDate:     m.EndDate,
		Volume:      m.Volume,
		YesPrice:    m.YesPrice,
		NoPrice:     m.NoPrice,
		ImageURL:    m.ImageURL,
		Category:    string(m.Category),
		IsResolved:  m.IsResolved,
		Winner:      string(m.Winner),
	}
}

type balancesView struct {
	Address        string     `json:"address"`
	Wallet         amountView `json:"wallet"`
	Vault          amountView `json:"vault"`
	Staked         amountView `json:"staked"`
	PendingRewards amountView `json:"pendingRewards"`
}

func toBalancesView(b domain.Balances) balancesView {
	return balancesView{
		Address:        b.Address.Hex(),
		Wallet:         amount(b.Wallet),
		Vault:          amount(b.Vault),
		Staked:         amount(b.Staked),
		PendingRewards: amount(b.PendingRewards),
	}
}

type activityView struct {
	ID        string     `json:"id"`
	Wallet    string     `json:"wallet"`
	Kind      string     `json:"kind"`
	MarketID  string     `json:"marketId,omitempty"`
	Outcome   string     `json:"outcome,omitempty"`
	Amount    amountView `json:"amount"`
	TxHash    string     `json:"txHash,omitempty"`
	Status    string     `json:"status"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func toActivityView(a domain.Activity) activityView {
	return activityView{
		ID:        a.ID,
		Wallet:    a.Wallet,
		Kind:      string(a.Kind),
		MarketID:  a.MarketID,
		Outcome:   string(a.Outcome),
		Amount:    amount(a.Amount),
		TxHash:    a.TxHash,
		Status:    string(a.Status),
		Error:     a.Error,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// actionResponse is returned by every transaction endpoint.
type actionResponse struct {
	Activity activityView `json:"activity"`
	Balances balancesView `json:"balances"`
}

type unstakeView struct {
	Amount        amountView `json:"amount"`
	UnlockTime    int64      `json:"unlockTime"`
	UnlockAt      string     `json:"unlockAt,omitempty"`
	Pending       bool       `json:"pending"`
	CanWithdraw   bool       `json:"canWithdraw"`
	ShowCountdown bool       `json:"showCountdown"`
	SecondsLeft   int64      `json:"secondsLeft"`
	HoursLeft     int64      `json:"hoursLeft"`
	DaysLeft      int64      `json:"daysLeft"`
	Phase         string     `json:"phase"`
}

func toUnstakeView(p domain.PendingUnstake, st unstake.Status) unstakeView {
	v := unstakeView{
		Amount:        amount(p.Amount),
		UnlockTime:    p.UnlockTime,
		Pending:       st.Pending,
		CanWithdraw:   st.CanWithdraw,
		ShowCountdown: st.ShowCountdown,
		SecondsLeft:   st.SecondsLeft,
		HoursLeft:     st.HoursLeft,
		DaysLeft:      st.DaysLeft,
		Phase:         string(st.Phase),
	}
	if !st.UnlockAt.IsZero() {
		v.UnlockAt = st.UnlockAt.Format(time.RFC3339)
	}
	return v
}

type stakingView struct {
	Address              string      `json:"address"`
	Staked               amountView  `json:"staked"`
	PendingRewards       amountView  `json:"pendingRewards"`
	Unstake              unstakeView `json:"unstake"`
	ProjectedDailyReward float64     `json:"projectedDailyReward"`
	APY                  float64     `json:"apy"`
	PoolTVL              float64     `json:"poolTvl"`
	ProtocolFee          float64     `json:"protocolFee"`
	LockPeriodSeconds    int64       `json:"lockPeriodSeconds"`
}

func toStakingView(p service.StakingPosition) stakingView {
	return stakingView{
		Address:              p.Address.Hex(),
		Staked:               amount(p.Staked),
		PendingRewards:       amount(p.PendingRewards),
		Unstake:              toUnstakeView(p.Pending, p.Lock),
		ProjectedDailyReward: p.ProjectedDailyReward,
		APY:                  p.APY,
		PoolTVL:              p.PoolTVL,
		ProtocolFee:          p.ProtocolFee,
		LockPeriodSeconds:    int64(p.LockPeriod / time.Second),
	}
}

type quoteView struct {
	MarketID        string     `json:"marketId"`
	Outcome         string     `json:"outcome"`
	Price           float64    `json:"price"`
	Amount          amountView `json:"amount"`
	PotentialShares float64    `json:"potentialShares"`
	PotentialReturn float64    `json:"potentialReturn"`
	PotentialProfit float64    `json:"potentialProfit"`
	ProfitPercent   float64    `json:"profitPercent"`
}

func toQuoteView(q service.Quote) quoteView {
	return quoteView{
		MarketID:        q.MarketID,
		Outcome:         string(q.Outcome),
		Price:           q.Price,
		Amount:          amount(q.Amount),
		PotentialShares: q.Shares,
		PotentialReturn: q.PotentialReturn,
		PotentialProfit: q.PotentialProfit,
		ProfitPercent:   q.ProfitPercent,
	}
}

type profileView struct {
	FID           int64  `json:"fid"`
	Username      string `json:"username"`
	PfpURL        string `json:"pfpUrl"`
	WalletAddress string `json:"walletAddress"`
	Points        int64  `json:"points"`
}

func toProfileView(p domain.UserProfile) profileView {
	return profileView{
		FID:           p.FID,
		Username:      p.Username,
		PfpURL:        p.PfpURL,
		WalletAddress: p.WalletAddress,
		Points:        p.Points,
	}
}
