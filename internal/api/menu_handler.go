package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"menufolio/internal/api/middleware"
	"menufolio/internal/apperr"
	"menufolio/internal/database"
	"menufolio/internal/store"
)

// MenuHandler 负责处理与菜单相关的 API 请求。
type MenuHandler struct {
	menus  store.MenuStore
	logger *slog.Logger
}

// NewMenuHandler 构造 MenuHandler。
func NewMenuHandler(menus store.MenuStore, logger *slog.Logger) *MenuHandler {
	return &MenuHandler{menus: menus, logger: logger}
}

var errInvalidMenuID = apperr.New(apperr.ValidationFailed, "invalid menu id")

type itemRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Ingredients []string `json:"ingredients"`
	Image       string   `json:"image"`
}

type sectionRequest struct {
	Name     string        `json:"name"`
	Position *int          `json:"position"`
	Items    []itemRequest `json:"items"`
}

type menuRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Location    string           `json:"location"`
	Contact     string           `json:"contact"`
	Sections    []sectionRequest `json:"sections"`
}

type itemResponse struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Ingredients []string `json:"ingredients"`
	Image       string   `json:"image,omitempty"`
}

type sectionResponse struct {
	ID       uint           `json:"id"`
	Name     string         `json:"name"`
	Position int            `json:"position"`
	Items    []itemResponse `json:"items"`
}

type menuResponse struct {
	ID          uint              `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Location    string            `json:"location"`
	Contact     string            `json:"contact"`
	Sections    []sectionResponse `json:"sections"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// CreateMenu 保存一份新的菜单，包括全部分区与菜品。
func (h *MenuHandler) CreateMenu(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req menuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	menu := req.toModel()
	menu.UserID = principal.ID

	if err := h.menus.Create(c.Request.Context(), menu); err != nil {
		h.fail(c, err, "Menu creation failed")
		return
	}

	Data(c, http.StatusCreated, newMenuResponse(*menu), "Menu created successfully")
}

// ListMenus 列出用户全部菜单。
func (h *MenuHandler) ListMenus(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	menus, err := h.menus.ListByOwner(c.Request.Context(), principal.ID)
	if err != nil {
		h.fail(c, err, "Failed to fetch menus")
		return
	}

	items := make([]menuResponse, 0, len(menus))
	for _, m := range menus {
		items = append(items, newMenuResponse(m))
	}
	Data(c, http.StatusOK, items, "Menus are fetched")
}

// GetMenu 返回指定 ID 的菜单。
func (h *MenuHandler) GetMenu(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := parseMenuID(c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to fetch menu")
		return
	}

	menu, err := h.menus.GetForOwner(c.Request.Context(), id, principal.ID)
	if err != nil {
		h.fail(c, err, "Failed to fetch menu")
		return
	}

	Data(c, http.StatusOK, newMenuResponse(*menu), "Menu data is fetched")
}

// UpdateMenu 以请求体整体替换菜单及其全部子层级。
func (h *MenuHandler) UpdateMenu(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := parseMenuID(c.Param("id"))
	if err != nil {
		h.fail(c, err, "Menu update failed")
		return
	}

	var req menuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	menu, err := h.menus.Replace(c.Request.Context(), id, principal.ID, req.toModel())
	if err != nil {
		h.fail(c, err, "Menu update failed")
		return
	}

	Data(c, http.StatusOK, newMenuResponse(*menu), "Menu updated successfully")
}

// DeleteMenu 删除菜单及其全部子层级，成功时返回 204。
func (h *MenuHandler) DeleteMenu(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := parseMenuID(c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to delete menu")
		return
	}

	if err := h.menus.Delete(c.Request.Context(), id, principal.ID); err != nil {
		h.fail(c, err, "Failed to delete menu")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *MenuHandler) fail(c *gin.Context, err error, internalMsg string) {
	Fail(c, h.loggerFromContext(c), err, "Menu not found", internalMsg)
}

func (h *MenuHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

func parseMenuID(param string) (uint, error) {
	id, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		return 0, errInvalidMenuID
	}
	return uint(id), nil
}

func (r menuRequest) toModel() *database.Menu {
	menu := &database.Menu{
		Name:        r.Name,
		Description: r.Description,
		Location:    r.Location,
		Contact:     r.Contact,
	}
	for i, sec := range r.Sections {
		section := database.Section{Name: sec.Name}
		// The slot index fills in only when the client omitted position;
		// an explicit 0 is a valid slot and must survive.
		if sec.Position != nil {
			section.Position = *sec.Position
		} else {
			section.Position = i
		}
		for _, it := range sec.Items {
			section.Items = append(section.Items, database.Item{
				Name:        it.Name,
				Description: it.Description,
				Ingredients: marshalIngredients(it.Ingredients),
				Image:       it.Image,
			})
		}
		menu.Sections = append(menu.Sections, section)
	}
	return menu
}

func marshalIngredients(ingredients []string) datatypes.JSON {
	data, err := json.Marshal(ingredients)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(data)
}

func unmarshalIngredients(raw datatypes.JSON) []string {
	var ingredients []string
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &ingredients)
	}
	return ingredients
}

func newMenuResponse(menu database.Menu) menuResponse {
	sections := make([]sectionResponse, 0, len(menu.Sections))
	for _, sec := range menu.Sections {
		items := make([]itemResponse, 0, len(sec.Items))
		for _, it := range sec.Items {
			items = append(items, itemResponse{
				ID:          it.ID,
				Name:        it.Name,
				Description: it.Description,
				Ingredients: unmarshalIngredients(it.Ingredients),
				Image:       it.Image,
			})
		}
		sections = append(sections, sectionResponse{
			ID:       sec.ID,
			Name:     sec.Name,
			Position: sec.Position,
			Items:    items,
		})
	}
	return menuResponse{
		ID:          menu.ID,
		Name:        menu.Name,
		Description: menu.Description,
		Location:    menu.Location,
		Contact:     menu.Contact,
		Sections:    sections,
		CreatedAt:   menu.CreatedAt,
		UpdatedAt:   menu.UpdatedAt,
	}
}
