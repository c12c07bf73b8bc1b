package handler

type AddMemberResponse struct {
	Index uint32 `json:"index"`
}

type RemoveMemberResponse struct {
	Account string `json:"account"`
	Index   uint32 `json:"index"`
}
