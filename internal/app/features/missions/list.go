package missions

import (
	"net/http"

	missionstore "github.com/civicapp/civichub/internal/app/store/missions"
	"github.com/civicapp/civichub/internal/app/system/normalize"
	"github.com/civicapp/civichub/internal/app/system/respond"
	"github.com/civicapp/civichub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

type listResponse struct {
	Missions []models.Mission `json:"missions"`
	Count    int              `json:"count"`
}

// ServeList handles GET /missions.
//
// ?q= searches title and description case-insensitively. ?category= keeps
// one category ("all" or empty keeps everything). Both may be combined.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := query.Search(r, "q")
	category := query.Get(r, "category")

	vm := h.holder(r)
	defer vm.Close()

	switch {
	case q != "":
		vm.Search(q)
	case category != "":
		vm.FilterByCategory(category)
	default:
		vm.LoadAll()
	}
	vm.Wait()

	if res := vm.LoadStatus.Value(); !res.OK {
		respond.Result(w, res)
		return
	}

	list := vm.Missions.Value()
	if q != "" && category != "" {
		list = inCategory(list, category)
	}
	respond.JSON(w, http.StatusOK, listResponse{Missions: list, Count: len(list)})
}

// inCategory narrows search results the same way ListByCategory filters:
// exact category match.
func inCategory(list []models.Mission, category string) []models.Mission {
	want := normalize.Category(category)
	if want == "" || want == missionstore.CategoryAll {
		return list
	}
	out := make([]models.Mission, 0, len(list))
	for _, m := range list {
		if m.Category == want {
			out = append(out, m)
		}
	}
	return out
}
