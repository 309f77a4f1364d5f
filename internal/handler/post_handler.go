package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkpost/internal/service"
)

// ListPosts 返回文章摘要列表，按创建时间倒序。
func (a *API) ListPosts(c *gin.Context) {
	posts, err := a.posts.List(c.Request.Context())
	if err != nil {
		a.respondServiceError(c, err, "Failed to fetch posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "posts": posts})
}

// GetPost 根据 slug 返回完整文章。
func (a *API) GetPost(c *gin.Context) {
	post, err := a.posts.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		a.respondServiceError(c, err, "Failed to fetch post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "post": post})
}

// CreatePost 创建文章，slug 由标题生成。
// slug 已被占用时，reject 策略返回 409，suffix 策略追加数字后缀。
func (a *API) CreatePost(c *gin.Context) {
	var input service.PostInput
	if !bindJSON(c, &input, "Invalid request body") {
		return
	}

	post, err := a.posts.Create(c.Request.Context(), input)
	if err != nil {
		a.respondServiceError(c, err, "Failed to create post")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Post created successfully",
		"post":    post,
	})
}

// UpdatePost 更新文章。标题变化时 slug 随之改变，旧 slug 不再可访问。
func (a *API) UpdatePost(c *gin.Context) {
	var input service.PostInput
	if !bindJSON(c, &input, "Invalid request body") {
		return
	}

	post, err := a.posts.Update(c.Request.Context(), c.Param("slug"), input)
	if err != nil {
		a.respondServiceError(c, err, "Failed to update post")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Post updated successfully",
		"post":    post,
	})
}

// DeletePost 物理删除文章。
func (a *API) DeletePost(c *gin.Context) {
	if err := a.posts.Delete(c.Request.Context(), c.Param("slug")); err != nil {
		a.respondServiceError(c, err, "Failed to delete post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Post deleted successfully"})
}

// PreviewSlug 供编辑器实时显示标题对应的 slug，不做占用检查。
func (a *API) PreviewSlug(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"slug": service.PreviewSlug(c.Query("title"))})
}
